package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/authz"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// CreateProjectRequest represents the project creation body
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateProjectRequest carries the fields to change. Absent fields are
// left untouched.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// GrantRequest names the user to add as participant.
type GrantRequest struct {
	Name string `json:"name" validate:"required"`
}

var errNoCaller = newError(http.StatusUnauthorized, "Not authenticated")

// caller returns the authorization context attached by RequireAuth.
func caller(r *http.Request) (*authz.Context, error) {
	ac, ok := authz.FromContext(r.Context())
	if !ok {
		return nil, errNoCaller
	}
	return ac, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, newError(http.StatusUnprocessableEntity, "%s must be an integer", name)
	}
	return id, nil
}

// authorizeProject checks existence first and privilege second.
func authorizeProject(ctx context.Context, svc project.Service, ac *authz.Context, id int64, requireOwner bool) error {
	if err := svc.Exists(ctx, id); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return projectNotFound(id)
		}
		return err
	}
	return ac.Check(id, requireOwner)
}

// projectRequest resolves the caller and the {id} path variable and
// authorizes the caller on that project.
func projectRequest(r *http.Request, svc project.Service, requireOwner bool) (*authz.Context, int64, error) {
	ac, err := caller(r)
	if err != nil {
		return nil, 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return nil, 0, err
	}
	if err := authorizeProject(r.Context(), svc, ac, id, requireOwner); err != nil {
		return nil, 0, err
	}
	return ac, id, nil
}

// decodeJSON strictly decodes the body into dst and validates it.
func decodeJSON(r *http.Request, validate *validator.Validate, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return newError(http.StatusUnprocessableEntity, "Invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return bindingError(err)
	}
	return nil
}

// NewListProjectsHandler lists every project the caller owns or participates in.
func NewListProjectsHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := caller(r)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		summaries, err := svc.List(r.Context(), ac.Accessible())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

// NewCreateProjectHandler creates a project owned by the caller.
func NewCreateProjectHandler(svc project.Service, validate *validator.Validate, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := caller(r)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var req CreateProjectRequest
		if err := decodeJSON(r, validate, &req); err != nil {
			writeError(w, r, log, err)
			return
		}

		view, err := svc.Create(r.Context(), req.Name, req.Description, ac.Username())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func NewGetProjectHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		view, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// NewUpdateProjectHandler changes name and/or description. Owners and
// participants may update.
func NewUpdateProjectHandler(svc project.Service, validate *validator.Validate, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, false)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var req UpdateProjectRequest
		if err := decodeJSON(r, validate, &req); err != nil {
			writeError(w, r, log, err)
			return
		}

		view, err := svc.Update(r.Context(), id, project.Update{Name: req.Name, Description: req.Description}, ac.Username())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// NewDeleteProjectHandler deletes a project. Owner only.
func NewDeleteProjectHandler(svc project.Service, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, true)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, log, err)
			return
		}
		log.WithFields(logrus.Fields{"project_id": id, "username": ac.Username()}).Info("project deleted by owner")
		w.WriteHeader(http.StatusNoContent)
	}
}

// NewGrantAccessHandler adds an existing user as participant. Owner only.
func NewGrantAccessHandler(svc project.Service, validate *validator.Validate, auditLogger auth.AuditLogger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, true)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var req GrantRequest
		if err := decodeJSON(r, validate, &req); err != nil {
			writeError(w, r, log, err)
			return
		}

		grant, err := svc.GrantAccess(r.Context(), id, req.Name)
		if errors.Is(err, project.ErrUserNotFound) {
			writeDetail(w, http.StatusNotFound, "No user with username '"+req.Name+"' found")
			return
		}
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		if auditLogger != nil {
			_ = auditLogger.Log(auth.CreateGrantAuditLog(ac.Username(), id, grant.Username, string(grant.Role)))
		}
		writeJSON(w, http.StatusOK, grant)
	}
}
