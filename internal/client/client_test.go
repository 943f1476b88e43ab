package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at server with retries that do not sleep.
func newTestClient(server *httptest.Server) *Client {
	c := NewClient(server.URL)
	c.retryDelay = time.Millisecond
	return c
}

// scriptedServer answers successive requests with the given statuses,
// repeating the last one, and records each request body.
type scriptedServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newScriptedServer(t *testing.T, statuses ...int) *scriptedServer {
	t.Helper()
	s := &scriptedServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, string(data))
		n := len(s.bodies)
		s.mu.Unlock()

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *scriptedServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func (s *scriptedServer) attempts() int {
	return len(s.received())
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
	require.NotNil(t, c.httpClient)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus string
		wantErr    bool
	}{
		{"healthy", http.StatusOK, `{"status":"healthy","service":"projecthub"}`, "healthy", false},
		{"server error", http.StatusInternalServerError, `{"detail":"Internal server error"}`, "", true},
		{"invalid json", http.StatusOK, "not json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			health, err := newTestClient(server).Health()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, health.Status)
		})
	}
}

func TestHealth_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(server)
	server.Close()

	_, err := c.Health()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to server")
}

func TestRetryableRequest(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantAttempts int
		wantStatus   int
	}{
		{"first try succeeds", []int{200}, 1, 200},
		{"recovers from 503", []int{503, 503, 200}, 3, 200},
		{"recovers from 504", []int{504, 200}, 2, 200},
		{"gives up with last response", []int{502}, maxAttempts, 502},
		{"client errors are final", []int{400}, 1, 400},
		{"server errors other than gateway are final", []int{500, 200}, 1, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newScriptedServer(t, tt.statuses...)
			req, err := http.NewRequest(http.MethodGet, server.URL+"/projects", nil)
			require.NoError(t, err)

			resp, err := newTestClient(server.Server).retryableRequest(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantAttempts, server.attempts())
		})
	}
}

func TestRetryableRequest_ResendsBody(t *testing.T) {
	server := newScriptedServer(t, 503, 200)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/projects", bytes.NewReader([]byte(`{"name":"x"}`)))
	require.NoError(t, err)
	resp, err := newTestClient(server.Server).retryableRequest(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{`{"name":"x"}`, `{"name":"x"}`}, server.received())
}

func TestRetryableRequest_UnreplayableBodyIsNotRetried(t *testing.T) {
	server := newScriptedServer(t, 503, 200)

	// A plain io.Reader gives the request no GetBody.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/projects", io.MultiReader(strings.NewReader("payload")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	_, err = newTestClient(server.Server).retryableRequest(req)
	assert.Error(t, err)
	assert.Equal(t, 1, server.attempts())
}

func TestReadLimitedResponse(t *testing.T) {
	data, err := readLimitedResponse(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = readLimitedResponse(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestErrorFromResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"detail field", `{"detail":"No project with id 7 found"}`, "No project with id 7 found"},
		{"plain text", "bad gateway\n", "bad gateway"},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			err := errorFromResponse(resp)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, http.StatusNotFound, StatusCode(err))
		})
	}
}

func TestDecodeResponse_ErrorCarriesDetail(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"detail": "Only the project owner can do that"})
	resp := &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(bytes.NewReader(body))}

	var out map[string]any
	err := decodeResponse(resp, &out)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Contains(t, err.Error(), "Only the project owner can do that")
}
