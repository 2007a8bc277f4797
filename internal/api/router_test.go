package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/config"
	"github.com/isdelr/cubeforge-be/internal/database"
	"github.com/isdelr/cubeforge-be/internal/services"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, config.DatabaseConfig{
		Driver:         database.DriverSQLite,
		Path:           filepath.Join(t.TempDir(), "api.db"),
		PoolSize:       4,
		ConnectTimeout: 5 * time.Second,
		AcquireTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: "router-test-secret", ExpireMinutes: 30})
	require.NoError(t, err)

	events := services.NewEventService(db)
	users := services.NewUserService(db, events)

	router := NewRouter(config.HTTPConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   1 << 20,
	}, Dependencies{
		Users:       users,
		Scenes:      services.NewSceneService(db, events),
		Events:      events,
		Tokens:      tokens,
		Guard:       auth.NewGuard(tokens, users),
		Healthcheck: database.Healthcheck(db),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.ContentLength != 0 {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func registerAndLogin(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/register", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = doJSON(t, srv, http.MethodPost, "/login", "", `{"username":"`+username+`","password":"password123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "bearer", body["token_type"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRouter_SceneLifecycle(t *testing.T) {
	srv := setupTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	resp, body := doJSON(t, srv, http.MethodGet, "/getCubeData", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"cubes": []any{}, "selectedCubes": []any{}, "hingePoints": map[string]any{}}, body)

	scene := `{"cubes":[{"position":{"x":0,"y":0,"z":0},"uuid":"c1","isFix":true},{"position":{"x":1,"y":0,"z":0},"uuid":"c2","isFix":false}],` +
		`"selectedCubes":["c1"],"hingePoints":{"h1":{"cube1UUID":"c1","cube2UUID":"c2","edge":"right","position":{"x":0.5,"y":0,"z":0}}}}`
	resp, body = doJSON(t, srv, http.MethodPost, "/saveCubeData", token, scene)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "success", body["status"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/getCubeData", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "bearer "+token)
	raw, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusOK, raw.StatusCode)
	var got json.RawMessage
	require.NoError(t, json.NewDecoder(raw.Body).Decode(&got))
	assert.JSONEq(t, scene, string(got))

	resp, body = doJSON(t, srv, http.MethodPost, "/saveCubeData", token, `{"cubes":[{"uuid":"c1"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error"])
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	srv := setupTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/getCubeData"},
		{http.MethodPost, "/saveCubeData"},
		{http.MethodGet, "/me"},
		{http.MethodGet, "/events"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			resp, _ := doJSON(t, srv, route.method, route.path, "", `{}`)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

			resp, _ = doJSON(t, srv, route.method, route.path, "not-a-jwt", `{}`)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRouter_RegisterConflictAndLoginFailures(t *testing.T) {
	srv := setupTestServer(t)
	registerAndLogin(t, srv, "bob")

	resp, body := doJSON(t, srv, http.MethodPost, "/register", "", `{"username":"bob","email":"other@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])

	resp, _ = doJSON(t, srv, http.MethodPost, "/login", "", `{"username":"bob","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = doJSON(t, srv, http.MethodPost, "/login", "", `{"email":"bob@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])
}

func TestRouter_IdentitiesIgnoreCase(t *testing.T) {
	srv := setupTestServer(t)
	registerAndLogin(t, srv, "dana")

	resp, body := doJSON(t, srv, http.MethodPost, "/register", "", `{"username":"DANA","email":"new@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, body)

	resp, body = doJSON(t, srv, http.MethodPost, "/register", "", `{"username":"dana2","email":"Dana@Example.com","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, body)

	resp, body = doJSON(t, srv, http.MethodPost, "/register", "", `{"username":"dana@example.com","email":"x@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

	resp, body = doJSON(t, srv, http.MethodPost, "/login", "", `{"username":"Dana","password":"password123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["access_token"].(string)

	resp, body = doJSON(t, srv, http.MethodGet, "/me", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "dana", body["username"])

	resp, body = doJSON(t, srv, http.MethodPost, "/login", "", `{"email":"DANA@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)
}

func TestRouter_UnauthorizedDetails(t *testing.T) {
	srv := setupTestServer(t)
	registerAndLogin(t, srv, "erin")

	resp, body := doJSON(t, srv, http.MethodPost, "/login", "", `{"username":"erin","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect username or password", body["detail"])

	resp, body = doJSON(t, srv, http.MethodGet, "/getCubeData", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Could not validate credentials", body["detail"])
}

func TestRouter_TokenFormAndMe(t *testing.T) {
	srv := setupTestServer(t)
	registerAndLogin(t, srv, "carol")

	form := url.Values{"username": {"carol"}, "password": {"password123"}}
	resp, err := srv.Client().PostForm(srv.URL+"/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))

	meResp, me := doJSON(t, srv, http.MethodGet, "/me", tok.AccessToken, "")
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	assert.Equal(t, "carol", me["username"])
	assert.NotContains(t, me, "hashed_password")

	evResp, _ := doJSON(t, srv, http.MethodGet, "/events?limit=5", tok.AccessToken, "")
	assert.Equal(t, http.StatusOK, evResp.StatusCode)
}

func TestRouter_HealthAndCORS(t *testing.T) {
	srv := setupTestServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/saveCubeData", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	pre, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer pre.Body.Close()
	assert.Equal(t, "http://localhost:3000", pre.Header.Get("Access-Control-Allow-Origin"))
}
