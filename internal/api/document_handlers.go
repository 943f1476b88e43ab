package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/project"
)

// documentRequest resolves {id} as a document and authorizes the caller
// on the project it belongs to.
func documentRequest(r *http.Request, svc project.Service) (string, *project.Document, error) {
	ac, err := caller(r)
	if err != nil {
		return "", nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return "", nil, err
	}
	doc, err := svc.GetDocument(r.Context(), id)
	if errors.Is(err, project.ErrDocumentNotFound) {
		return "", nil, documentNotFound(id)
	}
	if err != nil {
		return "", nil, err
	}
	if err := ac.Check(doc.ProjectID, false); err != nil {
		return "", nil, err
	}
	return ac.Username(), doc, nil
}

// NewUploadDocumentsHandler stores every file sent as upload_files.
func NewUploadDocumentsHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		files, err := formFiles(r, "upload_files")
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		docs, err := svc.AddDocuments(r.Context(), id, ac.Username(), files)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func NewListDocumentsHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		docs, err := svc.ListDocuments(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if docs == nil {
			docs = []*project.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// NewDownloadDocumentHandler serves the document as an attachment.
func NewDownloadDocumentHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, doc, err := documentRequest(r, svc)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		dl, err := svc.DownloadDocument(r.Context(), doc.ID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeAttachment(w, dl.Name, dl.ContentType, dl.Data)
	}
}

// NewReplaceDocumentHandler swaps the content of a document for the file
// sent as new_document.
func NewReplaceDocumentHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, doc, err := documentRequest(r, svc)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		file, err := formFile(r, "new_document")
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		updated, err := svc.ReplaceDocument(r.Context(), doc.ID, username, file)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func NewDeleteDocumentHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, doc, err := documentRequest(r, svc)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if err := svc.DeleteDocument(r.Context(), doc.ID); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
