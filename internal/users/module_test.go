package users

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restapidemo/internal/app"
	"restapidemo/internal/platform/config"
	"restapidemo/internal/platform/logger"
	"restapidemo/internal/users/models"
	"restapidemo/pkg/testutil"
)

func testConfig(driver, dsn string) config.Server {
	return config.Server{
		Addr:            "127.0.0.1:0",
		StoreDriver:     driver,
		DatabaseURL:     dsn,
		CacheTTL:        time.Minute,
		EventBuffer:     16,
		ShutdownTimeout: time.Second,
	}
}

func TestModuleIsRegistered(t *testing.T) {
	var found bool
	for _, reg := range app.Modules(app.ScanBasePackage) {
		found = found || reg.Namespace == Namespace
	}
	assert.True(t, found)
	assert.Equal(t, "primephil/restapidemo/users", Namespace)
}

func TestModuleServesUsers(t *testing.T) {
	cases := []struct {
		name   string
		driver string
		dsn    string
	}{
		{"memory store", config.StoreMemory, ""},
		{"sqlite store", config.StoreSQLite, "file:module_test?mode=memory&cache=shared&_time_format=sqlite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c, err := app.NewContainer(ctx, testConfig(tc.driver, tc.dsn), logger.Discard())
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })

			m, err := New(ctx, c)
			require.NoError(t, err)
			r := chi.NewRouter()
			m.Register(r)

			payload := map[string]string{
				"username":    "jdoe",
				"firstName":   "Jane",
				"lastName":    "Doe",
				"email":       "jane@example.com",
				"phoneNumber": "5551234567",
			}
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/users", payload))
			testutil.AssertStatus(t, rr, http.StatusCreated)
			created := testutil.UnmarshalResponse[models.User](t, rr)

			rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/users/"+created.ID.String()))
			testutil.AssertStatus(t, rr, http.StatusOK)
			assert.Equal(t, created.Username, testutil.UnmarshalResponse[models.User](t, rr).Username)
		})
	}
}
