package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	body := scrape(t, m)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/users/{id}",status="418"} 3`)
	assert.Contains(t, body, "http_request_duration_seconds_bucket")
	assert.NotContains(t, body, `route="/users/a"`)
}

func TestInstrument_DefaultStatusIsOK(t *testing.T) {
	m := NewMetrics()
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))

	assert.Contains(t, scrape(t, m), `http_requests_total{method="GET",route="unmatched",status="200"} 1`)
}

func TestRecordAuthRejection(t *testing.T) {
	m := NewMetrics()
	m.RecordAuthRejection(StageAuthentication, "revoked")
	m.RecordAuthRejection(StageAuthentication, "revoked")
	m.RecordAuthRejection(StageOMIL, "org_inactive")

	body := scrape(t, m)
	assert.Contains(t, body, `auth_rejections_total{reason="revoked",stage="authentication"} 2`)
	assert.Contains(t, body, `auth_rejections_total{reason="org_inactive",stage="omil"} 1`)
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordAuthRejection(StageAdmin, "no_membership")

	assert.NotContains(t, scrape(t, b), `stage="admin"`)
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"upper case level", "WARN", "json", false},
		{"empty defaults to info", "", "", false},
		{"invalid level", "loud", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}
