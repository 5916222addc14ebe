package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restapidemo/internal/platform/config"
	"restapidemo/internal/platform/logger"
	"restapidemo/internal/platform/metrics"
	"restapidemo/pkg/testutil"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	return &Container{
		Config:   config.Server{CORSAllowedOrigins: []string{"http://localhost:3000"}},
		Logger:   logger.Discard(),
		Registry: metrics.NewRegistry(),
	}
}

func TestLiveness(t *testing.T) {
	router := NewRouter(newTestContainer(t), nil)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("ready when every check passes", func(t *testing.T) {
		c := newTestContainer(t)
		c.AddHealthCheck("database", func(context.Context) error { return nil })

		rr := testutil.DoRequest(NewRouter(c, nil), testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("unavailable lists failing checks", func(t *testing.T) {
		c := newTestContainer(t)
		c.AddHealthCheck("database", func(context.Context) error { return nil })
		c.AddHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		rr := testutil.DoRequest(NewRouter(c, nil), testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		assert.JSONEq(t, `{"status":"unavailable","checks":{"redis":"connection refused"}}`, rr.Body.String())
	})
}

func TestRouterMountsModulesAndMetrics(t *testing.T) {
	c := newTestContainer(t)
	module := routesModule{register: func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}}
	router := NewRouter(c, []Module{module})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/ping"))
	testutil.AssertStatus(t, rr, http.StatusTeapot)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `restapidemo_http_requests_total{method="GET",route="/ping",status="418"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestRouterAnswersCORSPreflight(t *testing.T) {
	router := NewRouter(newTestContainer(t), nil)

	req := testutil.NewRequest(t, http.MethodOptions, "/users")
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := testutil.DoRequest(router, req)

	require.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
