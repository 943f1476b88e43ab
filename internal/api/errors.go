package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/authz"
	"github.com/anavel898/project-management-dashboard/internal/invite"
	"github.com/anavel898/project-management-dashboard/internal/middleware"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// Error is a response with a fixed status and client-facing detail.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func newError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Detail: fmt.Sprintf(format, args...)}
}

func projectNotFound(id int64) *Error {
	return newError(http.StatusNotFound, "No project with id %d found", id)
}

func documentNotFound(id int64) *Error {
	return newError(http.StatusNotFound, "No document with id %d found", id)
}

func logoNotFound(projectID int64) *Error {
	return newError(http.StatusNotFound, "Project with id %d doesn't have a logo", projectID)
}

// statusFor maps domain errors onto a status and detail message.
// Anything unrecognised is a 500 with a generic detail.
func statusFor(err error) (int, string) {
	var apiErr *Error
	var signupErr *auth.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status, apiErr.Detail

	case errors.Is(err, authz.ErrOwnerOnly):
		return http.StatusForbidden, "Only project owners can perform this action."
	case errors.Is(err, authz.ErrNoAccess):
		return http.StatusForbidden, "You don't have access to this project."

	case errors.Is(err, project.ErrProjectNotFound):
		return http.StatusNotFound, "Project not found"
	case errors.Is(err, project.ErrDocumentNotFound):
		return http.StatusNotFound, "Document not found"
	case errors.Is(err, project.ErrLogoNotFound):
		return http.StatusNotFound, "Logo not found"
	case errors.Is(err, project.ErrUserNotFound):
		return http.StatusNotFound, "User not found"

	case errors.Is(err, project.ErrUnsupportedLogo):
		return http.StatusBadRequest, "Logo must be a .png or .jpeg file"
	case errors.Is(err, project.ErrValidation):
		return http.StatusBadRequest, validationDetail(err)
	case errors.As(err, &signupErr):
		return http.StatusUnprocessableEntity, signupErr.Error()
	case errors.Is(err, project.ErrGrantExists):
		return http.StatusConflict, "User already has access to this project"

	case errors.Is(err, invite.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid join token"
	case errors.Is(err, invite.ErrTokenExpired):
		return http.StatusBadRequest, "Join token expired"
	case errors.Is(err, invite.ErrProjectMismatch):
		return http.StatusBadRequest, "Project ids in token and request body do not match"
	case errors.Is(err, invite.ErrSelfInvite):
		return http.StatusBadRequest, "Cannot invite yourself to project"
	case errors.Is(err, invite.ErrUnknownEmail):
		return http.StatusBadRequest, "No users are registered with provided email address"

	case middleware.IsMaxBytesError(err):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// validationDetail keeps what follows the sentinel text and capitalises it.
func validationDetail(err error) string {
	msg := err.Error()
	prefix := project.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	if msg == "" {
		return "Invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// bindingError converts validator failures into a 422.
func bindingError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(http.StatusUnprocessableEntity, "Invalid request body: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s: field required", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s: must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s: must be at least %s characters", fe.Field(), fe.Param()))
		case "email", "excludesall":
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), auth.SignupMessage(fe)))
		default:
			parts = append(parts, fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return &Error{Status: http.StatusUnprocessableEntity, Detail: strings.Join(parts, "; ")}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.RequestID(r.Context()),
		}).Error("request failed")
	}
	writeDetail(w, status, detail)
}
