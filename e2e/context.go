// Package e2e runs the feature scenarios against the full router in-process.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"restapidemo/internal/app"
	"restapidemo/internal/platform/config"
	"restapidemo/internal/platform/logger"
	"restapidemo/internal/users"
)

// TestContext holds one scenario's server and the last response.
type TestContext struct {
	container *app.Container
	handler   http.Handler

	lastStatus int
	lastBody   []byte
	lastHeader http.Header

	// remembered maps scenario aliases ("that user") to resource ids.
	remembered map[string]string
}

// NewTestContext builds a fresh in-memory server.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	cfg := config.Server{
		Addr:               "127.0.0.1:0",
		StoreDriver:        config.StoreMemory,
		CacheTTL:           time.Minute,
		EventBuffer:        64,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		ShutdownTimeout:    time.Second,
	}
	c, err := app.NewContainer(ctx, cfg, logger.Discard())
	if err != nil {
		return nil, err
	}
	module, err := users.New(ctx, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &TestContext{
		container:  c,
		handler:    app.NewRouter(c, []app.Module{module}),
		remembered: map[string]string{},
	}, nil
}

// Close releases the scenario's container.
func (tc *TestContext) Close() error {
	return tc.container.Close()
}

// Do sends a request with an optional JSON body and records the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(method, path, reader)
}

// DoRaw sends body verbatim as JSON.
func (tc *TestContext) DoRaw(method, path, body string) error {
	return tc.do(method, path, strings.NewReader(body))
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	tc.handler.ServeHTTP(rr, req)

	tc.lastStatus = rr.Code
	tc.lastBody = rr.Body.Bytes()
	tc.lastHeader = rr.Header()
	return nil
}

func (tc *TestContext) StatusCode() int { return tc.lastStatus }

func (tc *TestContext) Body() []byte { return tc.lastBody }

// ResponseObject decodes the last response as a JSON object.
func (tc *TestContext) ResponseObject() (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(tc.lastBody, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.lastBody)
	}
	return obj, nil
}

// ResponseArray decodes the last response as a JSON array of objects.
func (tc *TestContext) ResponseArray() ([]map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(tc.lastBody, &arr); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w (body: %s)", err, tc.lastBody)
	}
	return arr, nil
}

// Remember stores an id under alias.
func (tc *TestContext) Remember(alias, id string) {
	tc.remembered[alias] = id
}

// Recall returns the id stored under alias.
func (tc *TestContext) Recall(alias string) (string, error) {
	id, ok := tc.remembered[alias]
	if !ok {
		return "", fmt.Errorf("nothing remembered as %q", alias)
	}
	return id, nil
}
