package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/authz"
	"github.com/anavel898/project-management-dashboard/internal/logging"
	"github.com/anavel898/project-management-dashboard/internal/project"
	"github.com/anavel898/project-management-dashboard/internal/store/memory"
)

var testSecret = []byte("test-secret-key-min-32-bytes-long!")

type authFixture struct {
	codec   *auth.TokenCodec
	store   *memory.Store
	handler http.Handler
	called  bool
	ctx     *authz.Context
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store, err := memory.New()
	if err != nil {
		t.Fatalf("memory.New() error = %v, want nil", err)
	}
	if err := store.CreateUser(context.Background(), &auth.User{Username: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v, want nil", err)
	}

	f := &authFixture{codec: auth.NewTokenCodec(testSecret), store: store}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.called = true
		f.ctx, _ = authz.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	builder := authz.NewBuilder(f.codec, store, store)
	f.handler = RequireAuth(builder, DefaultPublicPaths, logging.Discard())(next)
	return f
}

func (f *authFixture) do(path, authorization string) *httptest.ResponseRecorder {
	f.called = false
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body error = %v, want nil", err)
	}
	return body["detail"]
}

// RED: Test RequireAuth with valid token
func TestRequireAuth_ValidToken(t *testing.T) {
	// Setup
	f := newAuthFixture(t)
	p, err := f.store.CreateProject(context.Background(), &project.Project{Name: "P", CreatedBy: "alice", CreatedOn: time.Now()})
	if err != nil {
		t.Fatalf("setup failed: CreateProject() error = %v", err)
	}
	token, err := f.codec.IssueSession("alice", time.Minute)
	if err != nil {
		t.Fatalf("setup failed: IssueSession() error = %v", err)
	}

	// Act
	w := f.do("/projects", "Bearer "+token)

	// Assert
	if !f.called {
		t.Fatal("handler was not called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("response code = %d, want %d", w.Code, http.StatusOK)
	}
	if f.ctx == nil || f.ctx.Username() != "alice" {
		t.Fatalf("context user = %v, want alice", f.ctx)
	}
	if err := f.ctx.Check(p.ID, true); err != nil {
		t.Errorf("Check(owned project) error = %v, want nil", err)
	}
}

// RED: Test RequireAuth rejects requests it cannot authenticate
func TestRequireAuth_Failures(t *testing.T) {
	f := newAuthFixture(t)

	expired, err := f.codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).IssueSession("alice", time.Minute)
	if err != nil {
		t.Fatalf("setup failed: IssueSession() error = %v", err)
	}
	ghost, err := f.codec.IssueSession("ghost", time.Minute)
	if err != nil {
		t.Fatalf("setup failed: IssueSession() error = %v", err)
	}
	foreign, err := auth.NewTokenCodec([]byte("some-other-secret-that-is-32-bytes")).IssueSession("alice", time.Minute)
	if err != nil {
		t.Fatalf("setup failed: IssueSession() error = %v", err)
	}

	tests := []struct {
		name          string
		authorization string
		wantDetail    string
	}{
		{"missing header", "", "Not authenticated"},
		{"wrong scheme", "Basic YWxpY2U6cHc=", "Not authenticated"},
		{"empty bearer", "Bearer ", "Not authenticated"},
		{"garbage token", "Bearer not.a.jwt", "Could not validate credentials"},
		{"foreign signature", "Bearer " + foreign, "Could not validate credentials"},
		{"expired", "Bearer " + expired, "Token expired"},
		{"unknown user", "Bearer " + ghost, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("/projects", tt.authorization)

			if f.called {
				t.Error("handler was called, want not called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("response code = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
				t.Errorf("WWW-Authenticate = %q, want Bearer", got)
			}
			if got := detailOf(t, w); got != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestRequireAuth_CaseInsensitiveScheme(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.codec.IssueSession("alice", time.Minute)
	if err != nil {
		t.Fatalf("setup failed: IssueSession() error = %v", err)
	}

	for _, scheme := range []string{"bearer ", "BEARER ", "BeArEr "} {
		w := f.do("/projects", scheme+token)
		if w.Code != http.StatusOK {
			t.Errorf("scheme %q: response code = %d, want %d", scheme, w.Code, http.StatusOK)
		}
	}
}

func TestRequireAuth_PublicPathsBypass(t *testing.T) {
	f := newAuthFixture(t)

	for _, path := range []string{"/", "/login", "/auth", "/join", "/health", "/metrics"} {
		w := f.do(path, "")
		if !f.called || w.Code != http.StatusOK {
			t.Errorf("%s: called = %v, code = %d, want handler called with 200", path, f.called, w.Code)
		}
		if f.ctx != nil {
			t.Errorf("%s: authorization context attached on public path", path)
		}
	}

	// Prefix matches are not public
	if w := f.do("/join/extra", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("/join/extra response code = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

type failingBuilder struct{}

func (failingBuilder) Build(context.Context, string) (*authz.Context, error) {
	return nil, errors.New("database is down")
}

func TestRequireAuth_BackendFailure(t *testing.T) {
	handler := RequireAuth(failingBuilder{}, nil, logging.Discard())(dummyHandler())

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer x")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("response code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != "" {
		t.Errorf("WWW-Authenticate = %q, want empty for server errors", got)
	}
}
