package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll echoes how many bytes it managed to read, or 413 on overflow.
func readAll(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			if IsMaxBytesError(err) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			t.Errorf("unexpected read error: %v", err)
		}
		fmt.Fprintf(w, "%d", len(body))
	})
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		hideLength bool
		wantStatus int
		wantBody   string
	}{
		{"empty", 0, false, http.StatusOK, "0"},
		{"under limit", 100, false, http.StatusOK, "100"},
		{"exact limit", 1024, false, http.StatusOK, "1024"},
		{"declared over limit", 2048, false, http.StatusRequestEntityTooLarge, ""},
		{"streamed over limit", 2048, true, http.StatusRequestEntityTooLarge, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = bytes.NewReader(bytes.Repeat([]byte("a"), tt.size))
			if tt.hideLength {
				body = io.MultiReader(body)
			}
			req := httptest.NewRequest(http.MethodPost, "/projects", body)
			if tt.hideLength {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()

			MaxBodySize(1024)(readAll(t)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestMaxBodySize_DeclaredOverLimitSkipsHandler(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodPut, "/project/1/logo", bytes.NewReader(make([]byte, 4096)))
	w := httptest.NewRecorder()
	MaxBodySize(1024)(next).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Request body too large", resp["detail"])
}

func TestMaxBodySize_MultipartUpload(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("upload_files", "big.bin")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 8192))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	var parseErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseMultipartForm(1 << 20)
	})

	req := httptest.NewRequest(http.MethodPost, "/project/1/documents", io.MultiReader(&buf))
	req.ContentLength = -1
	req.Header.Set("Content-Type", mw.FormDataContentType())
	MaxBodySize(1024)(next).ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, parseErr)
	assert.True(t, IsMaxBytesError(parseErr), "got %v", parseErr)
}

func TestIsMaxBytesError(t *testing.T) {
	assert.False(t, IsMaxBytesError(nil))
	assert.False(t, IsMaxBytesError(io.ErrUnexpectedEOF))
	assert.True(t, IsMaxBytesError(&http.MaxBytesError{Limit: 10}))
	assert.True(t, IsMaxBytesError(fmt.Errorf("read upload: %w", &http.MaxBytesError{Limit: 10})))
	assert.True(t, IsMaxBytesError(errors.New("multipart: NextPart: http: request body too large")))
}
