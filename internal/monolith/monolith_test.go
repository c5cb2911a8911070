package monolith_test

import (
	"context"
	"io"
	"testing"

	"github.com/kuoyehs/saga-dex-project/internal/config"
	"github.com/kuoyehs/saga-dex-project/internal/di"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/monolith"
)

// stubModule records lifecycle calls and what the container hands it.
type stubModule struct {
	registered bool
	started    bool
	services   di.ServiceRegistry
}

func (m *stubModule) RegisterServices(c di.Container) error {
	m.registered = true
	return nil
}

func (m *stubModule) Startup(_ context.Context, mono monolith.Monolith) error {
	m.started = true
	m.services = mono.Services()
	return nil
}

func newMonolith(t *testing.T) monolith.Monolith {
	t.Helper()

	cfg := &config.Config{
		Chain: config.ChainConfig{
			// The HTTP client connects lazily, so no server is needed.
			RPCURL:  "http://127.0.0.1:8545",
			ChainID: 2755378989728000,
		},
		Tokens: []config.TokenConfig{
			{Symbol: "TEST", Name: "Test Token", Address: "0x1111111111111111111111111111111111111111"},
		},
	}
	log := logger.New(io.Discard, logger.LevelError, "test", nil)

	mono, err := monolith.New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { mono.Close() })

	return mono
}

// The module lifecycle runs through the Monolith interface: helpers
// holding the interface type drive registration and startup.
func TestModuleLifecycle(t *testing.T) {
	mono := newMonolith(t)
	module := &stubModule{}

	if err := mono.RegisterModules(module); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !module.registered {
		t.Error("expected RegisterServices to run")
	}

	if err := mono.StartModules(context.Background(), module); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !module.started {
		t.Error("expected Startup to run")
	}
	if module.services == nil {
		t.Error("expected the module to see the service registry")
	}
}

func TestContainerOverridesFactory(t *testing.T) {
	mono := newMonolith(t)

	mono.Container().RegisterFactory("widget", func(sr di.ServiceRegistry) any {
		return "from factory"
	})
	mono.Container().Register("widget", "instance")

	if got := mono.Services().Get("widget"); got != "instance" {
		t.Errorf("widget = %v, want the registered instance", got)
	}
}

func TestSharedInfrastructureExposed(t *testing.T) {
	mono := newMonolith(t)

	if mono.Config() == nil || mono.Logger() == nil || mono.EthClient() == nil {
		t.Fatal("expected shared infrastructure accessors to be populated")
	}
	if _, ok := mono.TokenRegistry().Get("TEST"); !ok {
		t.Error("expected the token registry to hold the configured token")
	}
}
