package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anavel898/project-management-dashboard/internal/config"
	"github.com/anavel898/project-management-dashboard/internal/logging"
)

func TestLoadTLSConfig(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		minVersion string
		want       uint16
	}{
		{"disabled", false, "1.3", 0},
		{"default minimum", true, "", tls.VersionTLS12},
		{"tls 1.2", true, "1.2", tls.VersionTLS12},
		{"tls 1.3", true, "1.3", tls.VersionTLS13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, cert, key := loadTLSConfig(tt.enabled, "/etc/projecthub/tls.crt", "/etc/projecthub/tls.key", tt.minVersion)
			if !tt.enabled {
				if cfg != nil || cert != "" || key != "" {
					t.Errorf("loadTLSConfig(disabled) = %v, %q, %q, want nil and empty paths", cfg, cert, key)
				}
				return
			}
			if cfg == nil {
				t.Fatal("loadTLSConfig(enabled) returned nil config")
			}
			if cfg.MinVersion != tt.want {
				t.Errorf("MinVersion = %#x, want %#x", cfg.MinVersion, tt.want)
			}
			if cert != "/etc/projecthub/tls.crt" || key != "/etc/projecthub/tls.key" {
				t.Errorf("paths = %q, %q, want the configured cert and key", cert, key)
			}
		})
	}
}

func TestHandler_ServesOverTLS(t *testing.T) {
	handler, cleanup, err := buildHandler(context.Background(), testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("buildHandler() error = %v, want nil", err)
	}
	defer cleanup()

	tlsCfg, _, _ := loadTLSConfig(true, "", "", "1.3")
	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = tlsCfg
	srv.StartTLS()
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health over TLS: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health code = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.TLS == nil || resp.TLS.Version != tls.VersionTLS13 {
		t.Errorf("expected a TLS 1.3 connection, got %+v", resp.TLS)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_SECRET_KEY", "a-very-strong-secret-key-with-sufficient-entropy")
	t.Setenv("INVITE_SECRET_KEY", "another-strong-secret-key-with-plenty-of-entropy")
	t.Setenv("DOCUMENTS_BUCKET", "docs")
	t.Setenv("RAW_LOGO_BUCKET", "logos-raw")
	t.Setenv("RESIZED_LOGO_BUCKET", "logos")
	t.Setenv("BCRYPT_COST", "4")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
	return cfg
}

func TestBuildHandler_MemoryBackends(t *testing.T) {
	// Setup
	handler, cleanup, err := buildHandler(context.Background(), testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("buildHandler() error = %v, want nil", err)
	}
	defer cleanup()

	// Act
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Assert
	if w.Code != http.StatusOK {
		t.Errorf("GET /health code = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !strings.Contains(body, `"service":"projecthub"`) {
		t.Errorf("GET /health body = %s, want projecthub service", body)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /projects without token code = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = fmt.Sprint(ln.Addr().(*net.TCPAddr).Port)
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.Discard()) }()

	// wait for the listener
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://127.0.0.1:" + cfg.Server.Port + "/health")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
