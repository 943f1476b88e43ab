package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bearerLogin signs in through the API and returns the access token.
func bearerLogin(t *testing.T, env *testEnv, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	w := env.request(t, http.MethodPost, "/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func withToken(t *testing.T, env *testEnv, method, path, token string) int {
	t.Helper()
	req, err := http.NewRequest(method, path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	return w.Code
}

func TestScenario_TeamCollaboration(t *testing.T) {
	env := newTestEnv(t)
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		w := env.sendJSON(t, http.MethodPost, "/auth", "", map[string]string{
			"username":  u,
			"full_name": strings.ToUpper(u[:1]) + u[1:],
			"email":     u + "@example.com",
			"password":  "pw1",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// alice logs in and creates P1
	aliceToken := bearerLogin(t, env, "alice", "pw1")
	req, err := http.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"name":"P1","description":"first"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "alice", created["created_by"])
	assert.Equal(t, []any{"alice"}, created["contributors"])
	assert.Equal(t, []any{}, created["documents"])

	// direct grant to bob; carol has no grant
	w = env.sendJSON(t, http.MethodPost, "/project/1/invite", "alice", map[string]string{"name": "bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bobToken := bearerLogin(t, env, "bob", "pw1")
	assert.Equal(t, http.StatusOK, withToken(t, env, http.MethodGet, "/project/1/info", bobToken))
	carolToken := bearerLogin(t, env, "carol", "pw1")
	assert.Equal(t, http.StatusForbidden, withToken(t, env, http.MethodGet, "/project/1/info", carolToken))

	// email invite to dave, redeemed on P1 and replayed against P2
	env.createProject(t, "alice", "P2")
	w = env.get(t, "/project/1/share?email=dave%40example.com", "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var share ShareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &share))
	assert.Contains(t, env.mailer.last().Body, share.JoinToken[:20])

	w = env.get(t, joinPath(1, share.JoinToken), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"project_id":1,"username":"dave","role":"participant"}`, w.Body.String())

	w = env.get(t, joinPath(2, share.JoinToken), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Project ids in token and request body do not match", decodeDetail(t, w))

	w = env.get(t, "/project/1/info", "alice")
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.ElementsMatch(t, []any{"alice", "bob", "dave"}, view["contributors"])

	// only the owner may delete
	w = env.delete(t, "/project/1", "bob")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Only project owners can perform this action.", decodeDetail(t, w))

	assert.Equal(t, http.StatusNoContent, withToken(t, env, http.MethodDelete, "/project/1", aliceToken))
	assert.Equal(t, http.StatusNotFound, withToken(t, env, http.MethodGet, "/project/1/info", aliceToken))
	assert.Equal(t, http.StatusNotFound, withToken(t, env, http.MethodGet, "/project/1/info", bobToken))
}
