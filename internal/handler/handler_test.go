package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/repository"
	"escpr-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "escpr-service", Version: "test"},
		Printer: config.PrinterConfig{
			Connection: "FILE",
			File:       config.FileConfig{Path: filepath.Join(t.TempDir(), "capture.prn")},
		},
		Job: config.JobConfig{
			Name: "ESCPRLib", DPI: 360, Paper: "A4", MediaType: "PLAIN", Quality: "DRAFT",
			Layout: "BORDERS", Direction: "BIDIRECTIONAL", ColorMode: "COLOR", PaperPath: "AUTO",
			Margin:   config.MarginConfig{Left: 3, Top: 3, Right: 3, Bottom: 3},
			MaxPages: 5,
		},
	}

	logger := zap.NewNop()
	printService := service.NewPrintService(repository.NewJobRepository(logger), cfg, logger)
	decodeService := service.NewDecodeService(100, logger)

	router := gin.New()
	NewHealthHandler(cfg, logger).RegisterRoutes(&router.RouterGroup)
	api := router.Group("/api/v1")
	NewDecodeHandler(decodeService, 1<<20, logger).RegisterRoutes(api)
	NewJobHandler(printService, 1<<20, logger).RegisterRoutes(api)
	return router, cfg
}

func do(router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// TestHealthCheck verifies the health report names the connection.
func TestHealthCheck(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var health HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Connection != "FILE" || health.Checks["printer"].Status != "healthy" {
		t.Errorf("health = %+v", health)
	}
}

// TestDecodeEndpoint verifies raw and zstd bodies decode and malformed ones return 422.
func TestDecodeEndpoint(t *testing.T) {
	router, _ := newRouter(t)
	stream := []byte("\x1b@\x1b(U\x01\x00\x0a\x0c")

	w, env := do(router, httptest.NewRequest(http.MethodPost, "/api/v1/decode", bytes.NewReader(stream)))
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var result DecodeResponse
	json.Unmarshal(env.Data, &result)
	if result.Count != 3 || result.Commands[1].Name != "unit" || result.Commands[2].Name != "special" {
		t.Errorf("result = %+v", result)
	}

	enc, _ := zstd.NewWriter(nil)
	compressed := enc.EncodeAll(stream, nil)
	enc.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/decode", bytes.NewReader(compressed))
	req.Header.Set("Content-Encoding", "zstd")
	w, env = do(router, req)
	json.Unmarshal(env.Data, &result)
	if w.Code != http.StatusOK || result.Count != 3 {
		t.Errorf("zstd decode: status = %d, count = %d", w.Code, result.Count)
	}

	w, env = do(router, httptest.NewRequest(http.MethodPost, "/api/v1/decode", bytes.NewReader(stream[:5])))
	json.Unmarshal(env.Data, &result)
	if w.Code != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "DECODE_ERROR" {
		t.Errorf("truncated decode: status = %d, body %s", w.Code, w.Body)
	}
	if result.Count != 1 {
		t.Errorf("truncated decode kept %d commands, want 1", result.Count)
	}
}

// TestJobEndpoints verifies a JSON job prints and can be fetched and listed.
func TestJobEndpoints(t *testing.T) {
	router, _ := newRouter(t)

	body := `{"kind":"escpr","pages":2,"width":32,"height":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w, env := do(router, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var record struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		PagesSent int    `json:"pages_sent"`
		Paper     string `json:"paper"`
	}
	json.Unmarshal(env.Data, &record)
	if record.Status != "SUCCESS" || record.PagesSent != 2 || record.Paper != "A4" {
		t.Errorf("record = %+v", record)
	}

	w, _ = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+record.ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET job status = %d", w.Code)
	}
	w, _ = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/6d1c2a9e-8a4f-4a57-9a52-0d3f3c9d8e11", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET unknown job status = %d, want 404", w.Code)
	}
	w, _ = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET bad id status = %d, want 400", w.Code)
	}

	w, env = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?kind=escpr", nil))
	var list struct {
		Total int `json:"total"`
	}
	json.Unmarshal(env.Data, &list)
	if w.Code != http.StatusOK || list.Total != 1 {
		t.Errorf("list status = %d, total = %d", w.Code, list.Total)
	}
	w, _ = do(router, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=-1", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("list with bad limit status = %d, want 400", w.Code)
	}
}

// TestCreateJobRejectsInvalid verifies request validation maps to 400.
func TestCreateJobRejectsInvalid(t *testing.T) {
	router, _ := newRouter(t)

	for _, body := range []string{`{"kind":"pcl"}`, `{"pages":50}`, `{"paper":"B52"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if w, _ := do(router, req); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

// TestCreateJobMultipartRejectsGarbage verifies an undecodable upload is a bad request.
func TestCreateJobMultipartRejectsGarbage(t *testing.T) {
	router, _ := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("kind", "escp")
	part, _ := mw.CreateFormFile("image", "page.png")
	part.Write([]byte("definitely not a png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w, _ := do(router, req); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
