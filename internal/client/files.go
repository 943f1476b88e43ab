package client

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

// File is a named payload sent to or received from the server.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadFile loads a local file, guessing its content type from the extension.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return File{Name: name, ContentType: contentType, Data: data}, nil
}

func (ac *AuthenticatedClient) ListDocuments(projectID int64) ([]project.Document, error) {
	var docs []project.Document
	if err := ac.doJSON(http.MethodGet, fmt.Sprintf("/project/%d/documents", projectID), nil, &docs); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// UploadDocuments attaches files to a project in one request.
func (ac *AuthenticatedClient) UploadDocuments(projectID int64, files ...File) ([]project.Document, error) {
	var docs []project.Document
	err := ac.upload(http.MethodPost, fmt.Sprintf("/project/%d/documents", projectID), "upload_files", files, &docs)
	if err != nil {
		return nil, fmt.Errorf("failed to upload documents: %w", err)
	}
	return docs, nil
}

// ReplaceDocument swaps the content behind an existing document id.
func (ac *AuthenticatedClient) ReplaceDocument(documentID int64, f File) (*project.Document, error) {
	var doc project.Document
	if err := ac.upload(http.MethodPut, fmt.Sprintf("/document/%d", documentID), "new_document", []File{f}, &doc); err != nil {
		return nil, fmt.Errorf("failed to replace document %d: %w", documentID, err)
	}
	return &doc, nil
}

func (ac *AuthenticatedClient) DownloadDocument(documentID int64) (*File, error) {
	f, err := ac.download(fmt.Sprintf("/document/%d", documentID))
	if err != nil {
		return nil, fmt.Errorf("failed to download document %d: %w", documentID, err)
	}
	return f, nil
}

func (ac *AuthenticatedClient) DeleteDocument(documentID int64) error {
	if err := ac.doNoContent(http.MethodDelete, fmt.Sprintf("/document/%d", documentID)); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", documentID, err)
	}
	return nil
}

// UploadLogo sets or replaces the project logo. Only png and jpeg are accepted.
func (ac *AuthenticatedClient) UploadLogo(projectID int64, f File) (*project.Logo, error) {
	var logo project.Logo
	if err := ac.upload(http.MethodPut, fmt.Sprintf("/project/%d/logo", projectID), "logo", []File{f}, &logo); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	return &logo, nil
}

func (ac *AuthenticatedClient) DownloadLogo(projectID int64) (*File, error) {
	f, err := ac.download(fmt.Sprintf("/project/%d/logo", projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to download logo: %w", err)
	}
	return f, nil
}

func (ac *AuthenticatedClient) DeleteLogo(projectID int64) error {
	if err := ac.doNoContent(http.MethodDelete, fmt.Sprintf("/project/%d/logo", projectID)); err != nil {
		return fmt.Errorf("failed to delete logo: %w", err)
	}
	return nil
}

// upload sends files as a multipart form under field.
func (ac *AuthenticatedClient) upload(method, path, field string, files []File, dst any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     field,
			"filename": f.Name,
		}))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(method, ac.client.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := ac.AuthenticatedRequest(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, dst)
}

// download fetches an attachment; the file name comes from
// Content-Disposition.
func (ac *AuthenticatedClient) download(path string) (*File, error) {
	resp, err := ac.do(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	data, err := readLimitedResponse(resp.Body, MaxDownloadSize)
	if err != nil {
		return nil, err
	}
	f := &File{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		f.Name = filepath.Base(params["filename"])
	}
	if f.Name == "" || f.Name == "." || f.Name == "/" {
		f.Name = filepath.Base(path)
	}
	return f, nil
}
