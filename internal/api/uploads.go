package api

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/anavel898/project-management-dashboard/internal/middleware"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// formFiles reads every file sent under field. A missing field is a 422.
func formFiles(r *http.Request, field string) ([]project.Upload, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if middleware.IsMaxBytesError(err) {
			return nil, err
		}
		return nil, newError(http.StatusUnprocessableEntity, "Expected multipart form with field '%s'", field)
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, newError(http.StatusUnprocessableEntity, "%s: field required", field)
	}

	uploads := make([]project.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func formFile(r *http.Request, field string) (project.Upload, error) {
	uploads, err := formFiles(r, field)
	if err != nil {
		return project.Upload{}, err
	}
	return uploads[0], nil
}

func readUpload(fh *multipart.FileHeader) (project.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return project.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return project.Upload{}, err
	}
	return project.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
