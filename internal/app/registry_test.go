package app

import (
	"context"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routesModule struct {
	register func(r chi.Router)
}

func (m routesModule) Register(r chi.Router) {
	if m.register != nil {
		m.register(r)
	}
}

func noopFactory(context.Context, *Container) (Module, error) {
	return routesModule{}, nil
}

func namespaces(regs []Registration) []string {
	out := make([]string, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Namespace)
	}
	return out
}

func TestScanMatchesSegmentBoundaries(t *testing.T) {
	reg := NewRegistry()
	reg.Register("primephil/restapidemo/users", noopFactory)
	reg.Register("primephil/restapidemo/audit", noopFactory)
	reg.Register("primephil", noopFactory)
	reg.Register("primephilx/other", noopFactory)
	reg.Register("acme/users", noopFactory)

	assert.Equal(t,
		[]string{"primephil", "primephil/restapidemo/audit", "primephil/restapidemo/users"},
		namespaces(reg.Modules("primephil")))
	assert.Equal(t,
		[]string{"primephil/restapidemo/users"},
		namespaces(reg.Modules("primephil/restapidemo/users")))
	assert.Empty(t, reg.Modules("primephil/restapidemo/user"))
	assert.Empty(t, reg.Modules(""))
	assert.Equal(t, []string{"primephilx/other"}, namespaces(reg.Modules("/primephilx/")))
}

func TestRegisterRejectsBadRegistrations(t *testing.T) {
	reg := NewRegistry()
	reg.Register("primephil/a", noopFactory)

	assert.PanicsWithValue(t, "app: RegisterModule called twice for primephil/a", func() {
		reg.Register("primephil/a/", noopFactory)
	})
	assert.Panics(t, func() { reg.Register("  ", noopFactory) })
	assert.Panics(t, func() { reg.Register("primephil/b", nil) })
}

func TestDefaultRegistryIsEmptyWithoutModuleImports(t *testing.T) {
	require.Empty(t, Modules(ScanBasePackage))
}
