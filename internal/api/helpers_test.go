package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/authz"
	"github.com/anavel898/project-management-dashboard/internal/blob"
	"github.com/anavel898/project-management-dashboard/internal/invite"
	"github.com/anavel898/project-management-dashboard/internal/logging"
	"github.com/anavel898/project-management-dashboard/internal/metrics"
	"github.com/anavel898/project-management-dashboard/internal/project"
	"github.com/anavel898/project-management-dashboard/internal/store/memory"
)

const (
	testSessionSecret = "test-session-secret-key-min-32-bytes!"
	testInviteSecret  = "test-invite-secret-key-min-32-bytes!!"
	testPassword      = "SecurePass123!"
)

var testBuckets = blob.Buckets{Documents: "docs", RawLogos: "logos-raw", ProcessedLogos: "logos"}

// sentMail is one message captured by recordingMailer.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errors.New("mail provider unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return "msg-" + to, nil
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	store       *memory.Store
	blobs       *blob.MemoryStore
	sessions    *auth.TokenCodec
	invites     *auth.TokenCodec
	credentials *auth.Credentials
	mailer      *recordingMailer
	audit       *auth.InMemoryAuditLogger
	metrics     *metrics.Metrics
	limiter     *auth.RateLimiter
	handler     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := memory.New()
	require.NoError(t, err)

	env := &testEnv{
		store:       store,
		blobs:       blob.NewMemoryStore(),
		sessions:    auth.NewTokenCodec([]byte(testSessionSecret)),
		invites:     auth.NewTokenCodec([]byte(testInviteSecret)),
		credentials: auth.NewCredentials(store, 4),
		mailer:      &recordingMailer{},
		audit:       auth.NewInMemoryAuditLogger(),
		metrics:     metrics.New(),
		limiter:     auth.NewRateLimiter(time.Minute, 15*time.Minute, 1000),
	}
	t.Cleanup(env.limiter.Stop)

	log := logging.Discard()
	manager := project.NewManager(store, env.blobs, testBuckets, project.WithLogger(log))
	env.handler = NewRouter(Deps{
		Projects:         manager,
		Credentials:      env.credentials,
		Sessions:         env.sessions,
		SessionTTL:       30 * time.Minute,
		Builder:          authz.NewBuilder(env.sessions, store, store),
		Issuer:           invite.NewIssuer(env.invites, store, store, "http://hub.test", invite.DefaultTTL),
		Redeemer:         invite.NewRedeemer(env.invites, store, store, store),
		Mailer:           env.mailer,
		Metrics:          env.metrics,
		AuditLogger:      env.audit,
		Log:              log,
		RateLimiter:      env.limiter,
		LoginMaxAttempts: 10,
		LoginWindow:      15 * time.Minute,
		AllowedOrigins:   []string{"http://localhost:5173"},
		MaxUploadBytes:   1 << 20,
	})
	return env
}

// signup registers username with testPassword and an @example.com email.
func (e *testEnv) signup(t *testing.T, username string) {
	t.Helper()
	_, err := e.credentials.Create(context.Background(), username, username+" Tester", username+"@example.com", testPassword)
	require.NoError(t, err)
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	tok, err := e.sessions.IssueSession(username, 30*time.Minute)
	require.NoError(t, err)
	return tok
}

// request sends body with contentType as username. An empty username
// sends no Authorization header.
func (e *testEnv) request(t *testing.T, method, path, username string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if username != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, username))
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, path, username string) *httptest.ResponseRecorder {
	t.Helper()
	return e.request(t, http.MethodGet, path, username, nil, "")
}

func (e *testEnv) delete(t *testing.T, path, username string) *httptest.ResponseRecorder {
	t.Helper()
	return e.request(t, http.MethodDelete, path, username, nil, "")
}

func (e *testEnv) sendJSON(t *testing.T, method, path, username string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return e.request(t, method, path, username, bytes.NewReader(raw), "application/json")
}

// createProject creates a project as owner and returns its id.
func (e *testEnv) createProject(t *testing.T, owner, name string) int64 {
	t.Helper()
	w := e.sendJSON(t, http.MethodPost, "/projects", owner, map[string]string{"name": name, "description": name + " description"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view project.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view.ID
}

type filePart struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, files ...filePart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, method, path, username string, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files...)
	return e.request(t, method, path, username, body, contentType)
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	detail, _ := body["detail"].(string)
	return detail
}
