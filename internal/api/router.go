package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/invite"
	"github.com/anavel898/project-management-dashboard/internal/mail"
	"github.com/anavel898/project-management-dashboard/internal/metrics"
	"github.com/anavel898/project-management-dashboard/internal/middleware"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "projecthub"

// Body limits used when Deps leaves them unset.
const (
	DefaultMaxBodyBytes   = 1 << 20
	DefaultMaxUploadBytes = 32 << 20
)

// Deps is everything the router needs. Metrics, AuditLogger and
// RateLimiter are optional.
type Deps struct {
	Projects    project.Service
	Credentials *auth.Credentials
	Sessions    *auth.TokenCodec
	SessionTTL  time.Duration
	Builder     middleware.ContextBuilder
	Issuer      *invite.Issuer
	Redeemer    *invite.Redeemer
	Mailer      mail.Mailer
	Metrics     *metrics.Metrics
	AuditLogger auth.AuditLogger
	Log         logrus.FieldLogger

	RateLimiter      *auth.RateLimiter
	LoginMaxAttempts int
	LoginWindow      time.Duration

	AllowedOrigins []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// NewRouter wires every route. CORS wraps the router so preflight
// requests are answered before route matching.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	validate := newValidator()

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.RequireAuth(d.Builder, middleware.DefaultPublicPaths, log))

	maxBody, maxUpload := d.MaxBodyBytes, d.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	small := middleware.MaxBodySize(maxBody)
	large := middleware.MaxBodySize(maxUpload)
	limited := func(h http.Handler) http.Handler { return h }
	if d.RateLimiter != nil {
		limited = middleware.RateLimit(d.RateLimiter, d.LoginMaxAttempts, d.LoginWindow, log)
	}

	r.HandleFunc("/", rootHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", openAPIHandler).Methods(http.MethodGet)
	r.HandleFunc("/docs", docsHandler).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.Handle("/auth", limited(small(NewSignupHandler(d.Credentials, validate, d.AuditLogger, log)))).Methods(http.MethodPost)
	r.Handle("/login", limited(small(NewLoginHandler(d.Credentials, d.Sessions, d.SessionTTL, d.RateLimiter, d.AuditLogger, log)))).Methods(http.MethodPost)
	r.Handle("/join", NewJoinHandler(d.Redeemer, d.Metrics, d.AuditLogger, log)).Methods(http.MethodGet)

	r.Handle("/projects", NewListProjectsHandler(d.Projects, log)).Methods(http.MethodGet)
	r.Handle("/projects", small(NewCreateProjectHandler(d.Projects, validate, log))).Methods(http.MethodPost)
	r.Handle("/project/{id}/info", NewGetProjectHandler(d.Projects, log)).Methods(http.MethodGet)
	r.Handle("/project/{id}/info", small(NewUpdateProjectHandler(d.Projects, validate, log))).Methods(http.MethodPut)
	r.Handle("/project/{id}", NewDeleteProjectHandler(d.Projects, log)).Methods(http.MethodDelete)
	r.Handle("/project/{id}/invite", small(NewGrantAccessHandler(d.Projects, validate, d.AuditLogger, log))).Methods(http.MethodPost)
	r.Handle("/project/{id}/share", NewShareHandler(d.Projects, d.Issuer, d.Mailer, d.Metrics, d.AuditLogger, log)).Methods(http.MethodGet)

	r.Handle("/project/{id}/documents", large(NewUploadDocumentsHandler(d.Projects, log))).Methods(http.MethodPost)
	r.Handle("/project/{id}/documents", NewListDocumentsHandler(d.Projects, log)).Methods(http.MethodGet)
	r.Handle("/document/{id}", NewDownloadDocumentHandler(d.Projects, log)).Methods(http.MethodGet)
	r.Handle("/document/{id}", large(NewReplaceDocumentHandler(d.Projects, log))).Methods(http.MethodPut)
	r.Handle("/document/{id}", NewDeleteDocumentHandler(d.Projects, log)).Methods(http.MethodDelete)

	r.Handle("/project/{id}/logo", large(NewUploadLogoHandler(d.Projects, log))).Methods(http.MethodPut)
	r.Handle("/project/{id}/logo", NewDownloadLogoHandler(d.Projects, log)).Methods(http.MethodGet)
	r.Handle("/project/{id}/logo", NewDeleteLogoHandler(d.Projects, log)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return middleware.CORS(d.AllowedOrigins)(r)
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
