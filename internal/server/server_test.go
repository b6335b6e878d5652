package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/store"
	"github.com/me/schedkit/pkg/model"
)

const rtaTasks = `[{"wcet":1,"deadline":4,"period":4},{"wcet":2,"deadline":6,"period":6},{"wcet":3,"deadline":13,"period":13}]`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testServer(opts ...Option) *Server {
	logger := testLogger()
	return New(config.DefaultServerConfig(), catalog.New(logger, catalog.DefaultOptions()), logger, opts...)
}

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, header map[string]string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v, body=%s", method, path, err, w.Body.String())
	}
	return w.Code, env
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	code, env := do(t, srv, "GET", path, "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET %s: status=%d, want 200, error=%+v", path, code, env.Error)
	}
	return env
}

func doPost(t *testing.T, srv *Server, path, body string, want int) envelope {
	t.Helper()
	code, env := do(t, srv, "POST", path, body, nil)
	if code != want {
		t.Fatalf("POST %s: status=%d, want %d, error=%+v", path, code, want, env.Error)
	}
	return env
}

func TestDiscovery(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/")
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if env.RequestID == "" {
		t.Error("request_id is empty")
	}

	var data struct {
		Name      string `json:"name"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Name != "schedkit API" {
		t.Errorf("name = %q, want schedkit API", data.Name)
	}
	if len(data.Endpoints) < 8 {
		t.Errorf("endpoints count = %d, want >= 8", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/health")

	var data struct {
		Status     string `json:"status"`
		Version    string `json:"version"`
		Store      string `json:"store"`
		Algorithms int    `json:"algorithms"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if data.Store != "disabled" {
		t.Errorf("store = %q, want disabled", data.Store)
	}
	if data.Algorithms != 29 {
		t.Errorf("algorithms = %d, want 29", data.Algorithms)
	}
}

func TestListAlgorithms(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/algorithms/")
	if env.Pagination == nil || env.Pagination.Total != 29 {
		t.Fatalf("pagination = %+v, want total 29", env.Pagination)
	}

	env = doGet(t, srv, "/api/v1/algorithms/?family=uniproc-edf")
	var algos []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	json.Unmarshal(env.Data, &algos)
	if len(algos) != 1 || algos[0].Name != "edf" || algos[0].Kind != "analysis" {
		t.Errorf("uniproc-edf algorithms = %+v, want [edf]", algos)
	}
}

func TestGetAlgorithm(t *testing.T) {
	srv := testServer()
	tests := []struct {
		name   string
		kind   string
		oracle string
	}{
		{"rta", "analysis", ""},
		{"prm-fp", "resource", ""},
		{"prm-edf-design", "designer", "prm-edf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := doGet(t, srv, "/api/v1/algorithms/"+tt.name)
			var data struct {
				Name   string `json:"name"`
				Kind   string `json:"kind"`
				Oracle string `json:"oracle"`
			}
			json.Unmarshal(env.Data, &data)
			if data.Name != tt.name || data.Kind != tt.kind || data.Oracle != tt.oracle {
				t.Errorf("got %+v, want kind %q oracle %q", data, tt.kind, tt.oracle)
			}
		})
	}

	code, env := do(t, srv, "GET", "/api/v1/algorithms/nope", "", nil)
	if code != http.StatusNotFound || env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("GET unknown algorithm: status=%d error=%+v, want 404 NOT_FOUND", code, env.Error)
	}
}

func TestListFamilies(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/families")
	var fams []struct {
		Name  string   `json:"name"`
		Tests []string `json:"tests"`
	}
	json.Unmarshal(env.Data, &fams)
	if len(fams) != len(catalog.Families) {
		t.Fatalf("families = %d, want %d", len(fams), len(catalog.Families))
	}
	if fams[0].Name != "global-edf" {
		t.Errorf("first family = %q, want global-edf", fams[0].Name)
	}
}

type analyzeData struct {
	Algorithm string                 `json:"algorithm"`
	Verdict   model.Verdict          `json:"verdict"`
	Results   []model.AnalysisResult `json:"results"`
	Cached    bool                   `json:"cached"`
	RecordID  string                 `json:"record_id"`
}

func TestAnalyze_SingleAlgorithm(t *testing.T) {
	srv := testServer()
	env := doPost(t, srv, "/api/v1/analyze", `{"algorithm":"rta","tasks":`+rtaTasks+`}`, http.StatusOK)

	var data analyzeData
	json.Unmarshal(env.Data, &data)
	if data.Verdict != model.VerdictSchedulable {
		t.Errorf("verdict = %s, want SCHEDULABLE", data.Verdict)
	}
	if len(data.Results) != 1 || data.Results[0].Algorithm != "rta" {
		t.Errorf("results = %+v, want one rta result", data.Results)
	}
	if data.Cached || data.RecordID != "" {
		t.Errorf("cached=%v record_id=%q without a store", data.Cached, data.RecordID)
	}
}

func TestAnalyze_Family(t *testing.T) {
	srv := testServer()
	body := `{"algorithm":"fp","tasks":[{"wcet":6,"deadline":10,"period":10},{"wcet":2,"deadline":20,"period":20},{"wcet":4,"deadline":40,"period":40}]}`
	env := doPost(t, srv, "/api/v1/analyze", body, http.StatusOK)

	var data analyzeData
	json.Unmarshal(env.Data, &data)
	if data.Algorithm != "uniproc-fp" {
		t.Errorf("algorithm = %q, want uniproc-fp", data.Algorithm)
	}
	if data.Verdict != model.VerdictSchedulable {
		t.Errorf("verdict = %s, want SCHEDULABLE", data.Verdict)
	}
	if n := len(data.Results); n != 3 || data.Results[n-1].Algorithm != "rm-hyperbolic" {
		t.Errorf("results = %+v, want to stop at rm-hyperbolic", data.Results)
	}
}

func TestAnalyze_WithInterface(t *testing.T) {
	srv := testServer()
	body := `{"algorithm":"prm-edf","interface":{"period":2,"budget":2},"tasks":[{"wcet":1,"deadline":8,"period":8}]}`
	env := doPost(t, srv, "/api/v1/analyze", body, http.StatusOK)
	var data analyzeData
	json.Unmarshal(env.Data, &data)
	if data.Verdict != model.VerdictSchedulable {
		t.Errorf("verdict = %s, want SCHEDULABLE", data.Verdict)
	}

	env = doPost(t, srv, "/api/v1/analyze",
		`{"algorithm":"prm-edf","interface":{"period":2,"budget":3},"tasks":[{"wcet":1,"deadline":8,"period":8}]}`,
		http.StatusBadRequest)
	if env.Error == nil || len(env.Error.Details) == 0 || env.Error.Details[0].Path != "interface.budget" {
		t.Errorf("error = %+v, want interface.budget detail", env.Error)
	}

	// The same budget fits a resource spanning two processors.
	env = doPost(t, srv, "/api/v1/analyze",
		`{"algorithm":"mpr-fp","processors":2,"interface":{"period":2,"budget":3,"concurrency":2},"tasks":[{"wcet":1,"deadline":8,"period":8}]}`,
		http.StatusOK)
	data = analyzeData{}
	json.Unmarshal(env.Data, &data)
	if data.Verdict != model.VerdictSchedulable {
		t.Errorf("mpr-fp verdict = %s, want SCHEDULABLE", data.Verdict)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code model.ErrorCode
	}{
		{"invalid json", "not json", model.ErrValidation},
		{"missing algorithm", `{"tasks":` + rtaTasks + `}`, model.ErrValidation},
		{"zero wcet", `{"algorithm":"rta","tasks":[{"wcet":0,"deadline":4,"period":4}]}`, model.ErrValidation},
		{"empty task set", `{"algorithm":"rta","tasks":[]}`, model.ErrValidation},
		{"unknown algorithm", `{"algorithm":"nope","tasks":` + rtaTasks + `}`, model.ErrUnknownAlgo},
		{"resource without interface", `{"algorithm":"prm-fp","tasks":` + rtaTasks + `}`, model.ErrValidation},
	}
	srv := testServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := doPost(t, srv, "/api/v1/analyze", tt.body, http.StatusBadRequest)
			if env.Status != "error" {
				t.Errorf("status = %q, want error", env.Status)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestAnalyze_ValidationDetails(t *testing.T) {
	srv := testServer()
	body := `{"algorithm":"rta","tasks":[{"wcet":1,"deadline":4,"period":4},{"wcet":0,"deadline":6,"period":6}]}`
	env := doPost(t, srv, "/api/v1/analyze", body, http.StatusBadRequest)
	if env.Error == nil || len(env.Error.Details) == 0 {
		t.Fatalf("error = %+v, want field details", env.Error)
	}
	if env.Error.Details[0].Path != "tasks[1].wcet" {
		t.Errorf("path = %q, want tasks[1].wcet", env.Error.Details[0].Path)
	}
}

func TestAnalyze_CacheAndHistory(t *testing.T) {
	srv := testServer(WithStore(testStore(t)))
	body := `{"algorithm":"rta","tasks":` + rtaTasks + `}`

	var first, second analyzeData
	json.Unmarshal(doPost(t, srv, "/api/v1/analyze", body, http.StatusOK).Data, &first)
	json.Unmarshal(doPost(t, srv, "/api/v1/analyze", body, http.StatusOK).Data, &second)
	if first.Cached {
		t.Error("first request reported a cache hit")
	}
	if !second.Cached {
		t.Error("second request missed the cache")
	}
	if first.RecordID == "" || first.RecordID != second.RecordID {
		t.Errorf("record ids = %q, %q, want equal and non-empty", first.RecordID, second.RecordID)
	}

	env := doGet(t, srv, "/api/v1/results/")
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Fatalf("pagination = %+v, want total 1", env.Pagination)
	}

	env = doGet(t, srv, "/api/v1/results/"+first.RecordID)
	var rec model.Record
	json.Unmarshal(env.Data, &rec)
	if rec.Kind != "analysis" || rec.Algorithm != "rta" || rec.TaskCount != 3 {
		t.Errorf("record = %+v, want rta analysis of 3 tasks", rec)
	}

	code, _ := do(t, srv, "GET", "/api/v1/results/ana_missing", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("GET missing result: status=%d, want 404", code)
	}
}

func TestResults_NoStore(t *testing.T) {
	srv := testServer()
	code, env := do(t, srv, "GET", "/api/v1/results/", "", nil)
	if code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != model.ErrUnavailable {
		t.Errorf("status=%d error=%+v, want 503 UNAVAILABLE", code, env.Error)
	}
}

func TestDesign(t *testing.T) {
	srv := testServer(WithStore(testStore(t)))
	body := `{"algorithm":"prm-edf-design","verify":true,"tasks":[{"wcet":1,"deadline":8,"period":8},{"wcet":2,"deadline":12,"period":12}]}`
	env := doPost(t, srv, "/api/v1/design", body, http.StatusOK)

	var data struct {
		Design       model.DesignResult    `json:"design"`
		Verification *model.AnalysisResult `json:"verification"`
		RecordID     string                `json:"record_id"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Design.Outcome != model.OutcomeFound || data.Design.Interface == nil {
		t.Fatalf("design = %+v, want FOUND", data.Design)
	}
	if data.Verification == nil || data.Verification.Verdict != model.VerdictSchedulable {
		t.Errorf("verification = %+v, want SCHEDULABLE", data.Verification)
	}
	if !strings.HasPrefix(data.RecordID, "des_") {
		t.Errorf("record_id = %q, want des_ prefix", data.RecordID)
	}
}

func TestDesign_Errors(t *testing.T) {
	srv := testServer()
	tests := []struct {
		name string
		body string
		code model.ErrorCode
	}{
		{"missing algorithm", `{"tasks":` + rtaTasks + `}`, model.ErrValidation},
		{"not a designer", `{"algorithm":"rta","tasks":` + rtaTasks + `}`, model.ErrUnknownAlgo},
		{"bad period range", `{"algorithm":"prm-fp-design","period_min":5,"period_max":2,"tasks":` + rtaTasks + `}`, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := doPost(t, srv, "/api/v1/design", tt.body, http.StatusBadRequest)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := testServer(WithAPIKeys(&APIKeyConfig{Keys: map[string]string{"s3cret": "ci"}}))
	body := `{"algorithm":"rta","tasks":` + rtaTasks + `}`

	code, env := do(t, srv, "POST", "/api/v1/analyze", body, nil)
	if code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != model.ErrUnauthorized {
		t.Errorf("no key: status=%d error=%+v, want 401", code, env.Error)
	}
	code, _ = do(t, srv, "POST", "/api/v1/analyze", body, map[string]string{"X-API-Key": "wrong"})
	if code != http.StatusUnauthorized {
		t.Errorf("wrong key: status=%d, want 401", code)
	}
	code, _ = do(t, srv, "POST", "/api/v1/analyze", body, map[string]string{"X-API-Key": "s3cret"})
	if code != http.StatusOK {
		t.Errorf("valid key: status=%d, want 200", code)
	}

	// Read-only endpoints stay open.
	doGet(t, srv, "/api/v1/algorithms/")
}

func TestLoadAPIKeys(t *testing.T) {
	t.Setenv(APIKeyEnv, "alpha=ci, beta")
	keys, err := LoadAPIKeys("")
	if err != nil {
		t.Fatalf("LoadAPIKeys() error = %v", err)
	}
	if name, ok := keys.Lookup("alpha"); !ok || name != "ci" {
		t.Errorf("Lookup(alpha) = %q, %v, want ci", name, ok)
	}
	if name, ok := keys.Lookup("beta"); !ok || name != "env" {
		t.Errorf("Lookup(beta) = %q, %v, want env", name, ok)
	}
	if !keys.Enabled() {
		t.Error("Enabled() = false with keys configured")
	}
	if _, err := LoadAPIKeys("/nonexistent/keys.json"); err == nil {
		t.Error("LoadAPIKeys() of a missing file should fail")
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if id := w.Header().Get("X-Request-ID"); !strings.HasPrefix(id, "req_") {
		t.Errorf("X-Request-ID = %q, want req_ prefix", id)
	}
}

func TestHealthLogLevel(t *testing.T) {
	for _, tt := range []struct {
		level string
		want  bool
	}{{"debug", false}, {"info", true}} {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
		cfg := config.DefaultServerConfig()
		cfg.HealthLogLevel = tt.level
		srv := New(cfg, catalog.New(testLogger(), catalog.DefaultOptions()), logger)
		doGet(t, srv, "/api/v1/health")
		if got := strings.Contains(buf.String(), "path=/api/v1/health"); got != tt.want {
			t.Errorf("health level %s: logged = %v, want %v (%s)", tt.level, got, tt.want, buf.String())
		}
	}
}
