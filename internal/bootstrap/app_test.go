package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/config"
	"docmgmt-backend/internal/users"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:                "test",
		UploadDir:          t.TempDir(),
		ObjectStoreType:    "local",
		MaxUploadBytes:     1 << 20,
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		AuthRateLimitRPS:   100,
		AuthRateLimitBurst: 100,
		IngestionTimeout:   time.Second,
	}
}

func call(r *gin.Engine, method, path, authz, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func login(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp := call(r, http.MethodPost, "/auth/login", "", "application/json", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, resp.Code, resp.Body.String())
	}
	var pair struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &pair)
	return "Bearer " + pair.AccessToken
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.DatabaseURL = ""
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "://nope"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected REDIS_URL parse error")
	}
}

func TestDocumentLifecycleThroughRouter(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	r := app.Router

	if resp := call(r, http.MethodGet, "/health", "", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("health: %d", resp.Code)
	}

	reg, _ := json.Marshal(map[string]string{"email": "Reader@Example.com", "password": "secret1"})
	if resp := call(r, http.MethodPost, "/auth/register", "", "application/json", reg); resp.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}
	reader := login(t, r, "reader@example.com", "secret1")

	editor, err := app.UsersService.GetByEmail(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	role := "editor"
	if _, err := app.UsersService.Update(context.Background(), editor.ID, users.UpdateInput{Role: &role}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "plan.txt")
	_, _ = part.Write([]byte("quarterly plan"))
	_ = mw.Close()

	// The old token still carries role "user".
	if resp := call(r, http.MethodPost, "/documents/upload", reader, mw.FormDataContentType(), buf.Bytes()); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", resp.Code)
	}

	editorAuth := login(t, r, "reader@example.com", "secret1")
	resp := call(r, http.MethodPost, "/documents/upload", editorAuth, mw.FormDataContentType(), buf.Bytes())
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}
	var doc struct {
		ID       int64  `json:"id"`
		FileName string `json:"filename"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &doc)

	resp = call(r, http.MethodGet, "/documents/download/"+strconv.FormatInt(doc.ID, 10), editorAuth, "", nil)
	if resp.Code != http.StatusOK || resp.Body.String() != "quarterly plan" {
		t.Fatalf("download: %d %q", resp.Code, resp.Body.String())
	}

	resp = call(r, http.MethodGet, "/metrics", "", "", nil)
	if !strings.Contains(resp.Body.String(), "documents_uploaded_total") {
		t.Fatalf("metrics missing upload counter: %s", resp.Body.String())
	}

	if resp := call(r, http.MethodGet, "/users", editorAuth, "", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin /users, got %d", resp.Code)
	}
}
