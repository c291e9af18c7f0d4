package metrics

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/targets", "/api/v1/targets"},
		{"/api/v1/predict", "/api/v1/predict"},
		{"/api/v1/passes", "/api/v1/passes"},
		{"/api/v1/cpf/fetch", "/api/v1/cpf/fetch"},

		// Parameterized target routes collapse to one label.
		{"/api/v1/targets/lageos1", "/api/v1/targets/{name}"},
		{"/api/v1/targets/starlette", "/api/v1/targets/{name}"},
		{"/api/v1/targets/ajisai", "/api/v1/targets/{name}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that many distinct target names produce
// exactly 1 distinct path label.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range []string{"lageos1", "lageos2", "starlette", "stella", "ajisai", "hy2a"} {
		seen[normalizeRoute("/api/v1/targets/"+name)] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
