package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

// NewUploadLogoHandler sets or replaces the project logo from the file
// sent as logo.
func NewUploadLogoHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		file, err := formFile(r, "logo")
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		logo, err := svc.UploadLogo(r.Context(), id, ac.Username(), file)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, logo)
	}
}

func NewDownloadLogoHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		dl, err := svc.DownloadLogo(r.Context(), id)
		if errors.Is(err, project.ErrLogoNotFound) {
			err = logoNotFound(id)
		}
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeAttachment(w, dl.Name, "application/octet-stream", dl.Data)
	}
}

func NewDeleteLogoHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		err = svc.DeleteLogo(r.Context(), id, ac.Username())
		if errors.Is(err, project.ErrLogoNotFound) {
			err = logoNotFound(id)
		}
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
