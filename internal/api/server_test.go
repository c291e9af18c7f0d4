package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/slr/slrgo/internal/auth"
	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/interp"
	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/predict"
	"github.com/slr/slrgo/internal/timescale"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// testDocument builds a CPF document with a 40-sample circular orbit on
// MJD 57752 (2016-12-30) at 300-second spacing.
func testDocument() string {
	var b strings.Builder
	b.WriteString("H1 CPF 1 SGF 2016 12 30 10 8661 starlette\n")
	b.WriteString("H2 7501001 1134 7646 2016 12 30 0 0 0 2017 1 2 0 0 0 300 1 1 0 0 0\n")
	w := 2 * math.Pi / 5700
	for i := 0; i < 40; i++ {
		s := float64(i) * 300
		fmt.Fprintf(&b, "10 0 57752 %.6f 0 %.6f %.6f %.6f\n",
			s, 7.0e6*math.Cos(w*s), 7.0e6*math.Sin(w*s), 0.0)
	}
	b.WriteString("99\n")
	return b.String()
}

func testDeps(t *testing.T, loaded bool) Deps {
	t.Helper()

	ts := timescale.New(timescale.DefaultLeapSeconds())
	in := interp.New(interp.Options{})
	solver := lighttime.NewSolver(in, lighttime.Options{})
	gen := predict.NewGenerator(ts, in, solver, predict.Config{Workers: 2}, testLogger())

	store := cpf.NewStore()
	if loaded {
		targets, err := cpf.Parse(strings.NewReader(testDocument()), testLogger())
		if err != nil {
			t.Fatalf("parse test document: %v", err)
		}
		store.Set(&cpf.Dataset{Source: "test", FetchedAt: time.Now(), Targets: targets})
	}

	return Deps{TimeScale: ts, Store: store, Generator: gen}
}

func testServer(t *testing.T, deps Deps, authCfg auth.Config) http.Handler {
	t.Helper()
	return NewServer("127.0.0.1:0", testLogger(), authCfg, deps).HTTPServer().Handler
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTargetsEndpoint(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{})

	w := do(t, h, "GET", "/api/v1/targets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Source  string `json:"source"`
		Targets []struct {
			Name    string `json:"name"`
			Samples int    `json:"samples"`
		} `json:"targets"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Targets) != 1 || resp.Targets[0].Name != "starlette" {
		t.Errorf("targets = %+v, want one starlette entry", resp.Targets)
	}
	if resp.Targets[0].Samples != 40 {
		t.Errorf("samples = %d, want 40", resp.Targets[0].Samples)
	}

	w = do(t, h, "GET", "/api/v1/targets/starlette", "")
	if w.Code != http.StatusOK {
		t.Errorf("target detail status = %d, want 200", w.Code)
	}
	w = do(t, h, "GET", "/api/v1/targets/nosuch", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown target status = %d, want 404", w.Code)
	}
}

func TestTargetsUnavailableWhenEmpty(t *testing.T) {
	h := testServer(t, testDeps(t, false), auth.Config{})

	if w := do(t, h, "GET", "/api/v1/targets", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("targets status = %d, want 503", w.Code)
	}
	if w := do(t, h, "GET", "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", w.Code)
	}
}

func TestReadyzWhenLoaded(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{})
	if w := do(t, h, "GET", "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{})

	body := `{
		"target": "starlette",
		"station": {"type": "geodetic", "coordinates": [7.465222, 46.877230, 951.33]},
		"start": "2016-12-30 01:00:00",
		"end": "2016-12-30 01:10:00",
		"step_seconds": 60,
		"mode": "apparent"
	}`
	w := do(t, h, "POST", "/api/v1/predict", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var series predict.Series
	if err := json.NewDecoder(w.Body).Decode(&series); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(series.Records) != 11 {
		t.Errorf("records = %d, want 11", len(series.Records))
	}
	if series.Mode != "apparent" {
		t.Errorf("mode = %q, want apparent", series.Mode)
	}
}

func TestPredictRejections(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{})

	station := `{"type": "geodetic", "coordinates": [7.465222, 46.877230, 951.33]}`
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "step budget exceeded",
			body:       `{"target": "starlette", "station": ` + station + `, "start": "2016-12-30 00:00:00", "end": "2016-12-31 00:00:00", "step_seconds": 0.1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero step",
			body:       `{"target": "starlette", "station": ` + station + `, "start": "2016-12-30 01:00:00", "end": "2016-12-30 02:00:00"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown mode",
			body:       `{"target": "starlette", "station": ` + station + `, "start": "2016-12-30 01:00:00", "end": "2016-12-30 02:00:00", "step_seconds": 60, "mode": "instant"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad timestamp",
			body:       `{"target": "starlette", "station": ` + station + `, "start": "not a date", "end": "2016-12-30 02:00:00", "step_seconds": 60}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown target",
			body:       `{"target": "nosuch", "station": ` + station + `, "start": "2016-12-30 01:00:00", "end": "2016-12-30 02:00:00", "step_seconds": 60}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid JSON",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/v1/predict", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp map[string]any
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == nil {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestAuthEnforcement(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{Enabled: true, Token: "secret"})

	// Predict requires the token.
	w := do(t, h, "POST", "/api/v1/predict", `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated predict status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/predict", strings.NewReader(`{"target": "starlette"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized {
		t.Error("authenticated predict must not be 401")
	}

	// Target listing stays public.
	if w := do(t, h, "GET", "/api/v1/targets", ""); w.Code != http.StatusOK {
		t.Errorf("targets status = %d, want 200", w.Code)
	}
	if w := do(t, h, "GET", "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

func TestFetchEndpoint(t *testing.T) {
	doc := testDocument()
	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/starlette_cpf_161230_8661.sgf" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, doc)
	}))
	defer archive.Close()

	deps := testDeps(t, false)
	deps.Fetcher = cpf.NewFetcher(archive.URL + "/")
	h := testServer(t, deps, auth.Config{})

	w := do(t, h, "POST", "/api/v1/cpf/fetch", `{"name": "starlette_cpf_161230_8661.sgf"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if deps.Store.Find("starlette") == nil {
		t.Error("store must hold the fetched target")
	}

	w = do(t, h, "POST", "/api/v1/cpf/fetch", `{"name": "missing.sgf"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("missing file status = %d, want 502", w.Code)
	}
	w = do(t, h, "POST", "/api/v1/cpf/fetch", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}
}

func TestPassesEndpoint(t *testing.T) {
	h := testServer(t, testDeps(t, true), auth.Config{})

	// An equatorial orbit is never visible from 47N, so the pass list is
	// empty but the request succeeds.
	body := `{
		"target": "starlette",
		"station": {"type": "geodetic", "coordinates": [7.465222, 46.877230, 951.33]},
		"start": "2016-12-30 01:00:00",
		"end": "2016-12-30 02:00:00",
		"cutoff_deg": 10
	}`
	w := do(t, h, "POST", "/api/v1/passes", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Passes []predict.Pass `json:"passes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Passes) != 0 {
		t.Errorf("passes = %d, want 0", len(resp.Passes))
	}

	w = do(t, h, "POST", "/api/v1/passes", `{"target": "starlette", "station": {"type": "geodetic", "coordinates": [0, 0, 0]}, "start": "2016-12-30 01:00:00", "end": "2016-12-30 02:00:00", "cutoff_deg": 95}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad cutoff status = %d, want 400", w.Code)
	}
}
