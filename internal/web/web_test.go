package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"

	"netsonic/internal/isp"
	"netsonic/internal/models"
	"netsonic/internal/netinfo"
	"netsonic/internal/payload"
	"netsonic/internal/speedtest"
)

var _ models.WebServer = (*Server)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	results []models.SpeedTestResult
	err     error
	limits  []int
}

func (f *fakeStore) SaveResult(r models.SpeedTestResult) error {
	f.results = append([]models.SpeedTestResult{r}, f.results...)
	return nil
}

func (f *fakeStore) GetRecent(limit int) ([]models.SpeedTestResult, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:min(limit, len(f.results))], nil
}

func (f *fakeStore) GetSince(time.Duration) ([]models.SpeedTestResult, error) {
	return f.results, f.err
}

func (f *fakeStore) GetSummary(time.Duration) (models.Summary, error) {
	return models.Summary{Runs: len(f.results)}, f.err
}

func (f *fakeStore) Prune(int) (int64, error) { return 0, nil }
func (f *fakeStore) Close() error             { return nil }

type fakeEnricher map[string]string

func (f fakeEnricher) LookupISP(ip string) (string, bool) {
	name, ok := f[ip]
	return name, ok
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	s := New(nil, 0, nil)

	w := serve(s, httptest.NewRequest(http.MethodHead, "/api/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d", w.Code)
	}
	if w.Header().Get("Cache-Control") != noStore {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var body struct {
		Timestamp int64  `json:"timestamp"`
		Server    string `json:"server"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode ping: %v", err)
	}
	if body.Server != serverName || body.Timestamp == 0 {
		t.Errorf("unexpected ping body %+v", body)
	}
}

func TestDownload(t *testing.T) {
	s := New(nil, 0, nil)

	tests := []struct {
		name string
		size string
		want int
	}{
		{"common size", "65536", 64 * payload.KiB},
		{"odd size", "1000", 1000},
		{"invalid", "abc", payload.DefaultSize},
		{"zero", "0", payload.DefaultSize},
		{"too large", strconv.Itoa(50 * payload.MiB), payload.MaxSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, httptest.NewRequest(http.MethodGet, "/api/download/"+tt.size, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if w.Body.Len() != tt.want {
				t.Errorf("body length = %d, want %d", w.Body.Len(), tt.want)
			}
			if w.Header().Get("Content-Length") != strconv.Itoa(tt.want) {
				t.Errorf("Content-Length = %q", w.Header().Get("Content-Length"))
			}
			if w.Header().Get("Content-Type") != "application/octet-stream" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing nosniff header")
			}
			if w.Header().Get("Cache-Control") != noStore {
				t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
			}
			if !bytes.Equal(w.Body.Bytes()[:min(512, tt.want)], payload.Filler(min(512, tt.want))) {
				t.Error("body does not follow the filler pattern")
			}
		})
	}
}

func TestUpload(t *testing.T) {
	s := New(nil, 0, nil)
	body := payload.Filler(300 * payload.KiB)

	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var ack struct {
		Success  bool  `json:"success"`
		Received int64 `json:"received"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if !ack.Success || ack.Received != int64(len(body)) {
		t.Errorf("unexpected ack %+v", ack)
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestUploadReadFailure(t *testing.T) {
	s := New(nil, 0, nil)
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/upload", failingBody{}))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] == nil {
		t.Errorf("missing error field: %v", body)
	}
}

func providerServer(t *testing.T, body string, calls *atomic.Int32) *isp.Resolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return isp.NewResolver(nil, isp.NewHTTPProvider("test", srv.URL, srv.Client(), isp.DecodeIPAPICom))
}

func getISP(t *testing.T, s *Server, remote string) map[string]string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/get-isp", nil)
	req.RemoteAddr = remote
	w := serve(s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	return body
}

func TestGetISPUsesGeoIPForPublicClients(t *testing.T) {
	var calls atomic.Int32
	resolver := providerServer(t, `{"status":"success","isp":"Server ISP","query":"198.51.100.1"}`, &calls)
	s := New(nil, 0, nil).WithISP(resolver, fakeEnricher{"203.0.113.7": "Client Telecom"})

	body := getISP(t, s, "203.0.113.7:4000")
	if body["isp"] != "Client Telecom" || body["ip"] != "203.0.113.7" {
		t.Errorf("unexpected body %v", body)
	}
	if calls.Load() != 0 {
		t.Errorf("provider called %d times for a GeoIP hit", calls.Load())
	}

	// private clients fall through to the provider chain, which is cached
	for i := 0; i < 3; i++ {
		body = getISP(t, s, "10.0.0.5:4000")
		if body["isp"] != "Server ISP" {
			t.Errorf("unexpected body %v", body)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", calls.Load())
	}
}

func TestGetISPUnknown(t *testing.T) {
	var calls atomic.Int32
	resolver := providerServer(t, `{"status":"fail","message":"reserved range"}`, &calls)

	tests := []struct {
		name   string
		server *Server
	}{
		{"no resolver", New(nil, 0, nil)},
		{"provider failure", New(nil, 0, nil).WithISP(resolver, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := getISP(t, tt.server, "192.168.1.10:5000")
			if body["isp"] != unknownISP {
				t.Errorf("isp = %q, want %q", body["isp"], unknownISP)
			}
			if body["error"] == "" {
				t.Error("missing error field")
			}
		})
	}
}

func TestHistory(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 15; i++ {
		store.SaveResult(models.SpeedTestResult{ID: strconv.Itoa(i), DownloadMbps: float64(i)})
	}
	s := New(store, 0, nil).WithHistoryLimit(5)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var results []models.SpeedTestResult
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(results) != 5 || results[0].ID != "14" {
		t.Errorf("unexpected results %+v", results)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=12", nil))
	if w.Code != http.StatusOK || store.limits[len(store.limits)-1] != 12 {
		t.Errorf("limit not applied: status %d, limits %v", w.Code, store.limits)
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?limit=-1", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for bad limit, want 400", w.Code)
	}

	store.err = errors.New("disk on fire")
	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d on store error, want 500", w.Code)
	}

	w = serve(New(nil, 0, nil), httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d without store, want 503", w.Code)
	}
}

func TestSummary(t *testing.T) {
	store := &fakeStore{}
	store.SaveResult(models.SpeedTestResult{ID: "a"})
	store.SaveResult(models.SpeedTestResult{ID: "b"})

	w := serve(New(store, 0, nil), httptest.NewRequest(http.MethodGet, "/api/summary?hours=6", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var summary models.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if summary.Runs != 2 {
		t.Errorf("Runs = %d, want 2", summary.Runs)
	}
}

func TestStaticFiles(t *testing.T) {
	static := fstest.MapFS{
		"static/index.html": &fstest.MapFile{Data: []byte("<h1>NET-SONIC</h1>")},
	}
	s := New(nil, 0, static)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("NET-SONIC")) {
		t.Errorf("index: status %d body %q", w.Code, w.Body.String())
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("api route shadowed by static files: %d", w.Code)
	}
}

func TestEngineAgainstServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full run in short mode")
	}

	var calls atomic.Int32
	resolver := providerServer(t, `{"status":"success","isp":"Loopback Networks","query":"198.51.100.1"}`, &calls)
	srv := httptest.NewServer(New(nil, 0, nil).WithISP(resolver, nil).Handler())
	defer srv.Close()

	conn := netinfo.Connection{Class: netinfo.Broadband, Type: netinfo.TypeEthernet}
	engine := speedtest.New(speedtest.Options{
		BaseURL:      srv.URL + "/api",
		TestDuration: 300 * time.Millisecond,
		PingCount:    5,
		Parallel:     2,
		HTTPClient:   srv.Client(),
		Connection:   &conn,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := engine.RunFullTest(ctx)
	if err != nil {
		t.Fatalf("RunFullTest failed: %v", err)
	}
	if result.DownloadMbps <= 0 || result.UploadMbps <= 0 {
		t.Errorf("expected positive speeds, got %+v", result)
	}
	if result.ISP != "Loopback Networks" {
		t.Errorf("ISP = %q, want %q", result.ISP, "Loopback Networks")
	}
	if result.ConnectionType != netinfo.TypeEthernet {
		t.Errorf("ConnectionType = %q", result.ConnectionType)
	}
	if result.ID == "" || result.Timestamp.IsZero() {
		t.Errorf("result missing identity: %+v", result)
	}
}

func TestSaveResult(t *testing.T) {
	store := &fakeStore{}
	s := New(store, 0, nil).WithMaxPlausibleMbps(1000)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"download_mbps":95.5,"upload_mbps":20.1,"ping_ms":12,"jitter_ms":1.5,"isp":"Example"}`, http.StatusCreated},
		{"malformed", `{"download_mbps":`, http.StatusBadRequest},
		{"too fast", `{"download_mbps":5000,"upload_mbps":20}`, http.StatusUnprocessableEntity},
		{"negative ping", `{"download_mbps":10,"upload_mbps":2,"ping_ms":-1}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/history", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(s, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}

	if len(store.results) != 1 {
		t.Fatalf("stored %d results, want 1", len(store.results))
	}
	saved := store.results[0]
	if saved.ID == "" || saved.Timestamp.IsZero() || saved.ISP != "Example" {
		t.Errorf("unexpected saved result %+v", saved)
	}
}
