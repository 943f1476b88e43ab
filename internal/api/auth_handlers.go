package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/middleware"
)

const maxFormMemory = 1 << 20

// SignupRequest represents the signup request body
type SignupRequest struct {
	Username string `json:"username" validate:"required,max=32,excludesall= /"`
	FullName string `json:"full_name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// SignupResponse is the created identity, without the password hash.
type SignupResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// decodeCredentials fills fields from a JSON object or from form values
// with the same names.
func decodeCredentials(r *http.Request, fields map[string]*string) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		raw := make(map[string]any)
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return err
		}
		for name, dst := range fields {
			if v, ok := raw[name].(string); ok {
				*dst = v
			}
		}
		return nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return err
		}
	} else if err := r.ParseForm(); err != nil {
		return err
	}
	for name, dst := range fields {
		*dst = r.PostFormValue(name)
	}
	return nil
}

// NewSignupHandler creates a handler that registers a new user.
func NewSignupHandler(credentials *auth.Credentials, validate *validator.Validate, auditLogger auth.AuditLogger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		err := decodeCredentials(r, map[string]*string{
			"username":  &req.Username,
			"full_name": &req.FullName,
			"email":     &req.Email,
			"password":  &req.Password,
		})
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.FullName = strings.TrimSpace(req.FullName)
		req.Email = strings.TrimSpace(req.Email)
		if err := validate.Struct(&req); err != nil {
			writeError(w, r, log, bindingError(err))
			return
		}

		user, err := credentials.Create(r.Context(), req.Username, req.FullName, req.Email, req.Password)
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			writeDetail(w, http.StatusBadRequest, "Username '"+req.Username+"' is already taken")
			return
		case errors.Is(err, auth.ErrEmailTaken):
			writeDetail(w, http.StatusBadRequest, "Email '"+req.Email+"' is already registered")
			return
		}
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		if auditLogger != nil {
			_ = auditLogger.Log(auth.CreateSignupAuditLog(user.Username, user.Email, middleware.GetClientIP(r)))
		}

		writeJSON(w, http.StatusOK, SignupResponse{
			Username: user.Username,
			FullName: user.FullName,
			Email:    user.Email,
		})
	}
}

// NewLoginHandler creates a new login handler.
// If rateLimiter is non-nil, the rate limit for the client IP is reset on successful login.
// If auditLogger is non-nil, login attempts (success and failure) are audit-logged.
func NewLoginHandler(
	credentials *auth.Credentials,
	sessions *auth.TokenCodec,
	sessionTTL time.Duration,
	rateLimiter *auth.RateLimiter,
	auditLogger auth.AuditLogger,
	log logrus.FieldLogger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		err := decodeCredentials(r, map[string]*string{
			"username": &req.Username,
			"password": &req.Password,
		})
		if err != nil || req.Username == "" || req.Password == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "username and password are required")
			return
		}

		ip := middleware.GetClientIP(r)
		user, err := credentials.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if user == nil {
			if auditLogger != nil {
				_ = auditLogger.Log(auth.CreateLoginAuditLog(false, req.Username, ip, r.UserAgent()))
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}

		accessToken, err := sessions.IssueSession(user.Username, sessionTTL)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		// Reset rate limit on successful login
		if rateLimiter != nil {
			rateLimiter.ResetLimit(middleware.RateLimitKey(r.URL.Path, ip))
		}

		if auditLogger != nil {
			_ = auditLogger.Log(auth.CreateLoginAuditLog(true, user.Username, ip, r.UserAgent()))
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken: accessToken,
			TokenType:   "bearer",
		})
	}
}
