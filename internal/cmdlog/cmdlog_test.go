package cmdlog

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRunCountsRunsAndErrors(t *testing.T) {
	require.NoError(t, Run("cmdlog_ok", func() error { return nil }))
	boom := errors.New("boom")
	require.ErrorIs(t, Run("cmdlog_fail", func() error { return boom }), boom)

	body := scrape(t)
	require.Contains(t, body, `insta_command_runs_total{command="cmdlog_ok"} 1`)
	require.Contains(t, body, `insta_command_runs_total{command="cmdlog_fail"} 1`)
	require.Contains(t, body, `insta_command_errors_total{command="cmdlog_fail"} 1`)
	require.NotContains(t, body, `insta_command_errors_total{command="cmdlog_ok"}`)
}
