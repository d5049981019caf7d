package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`server:
  ip: "127.0.0.1"
  port: 8000
log:
  log_level: info
  log_dir: %q
  log_file: test.log
`, dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"cache:init-store",
		"analyzer:init",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	t.Setenv("LEAFAI_CONFIG", writeTestConfig(t))

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.logger == nil {
		t.Fatal("logger is nil after init")
	}
	if state.analyzer == nil {
		t.Fatal("analyzer is nil after init")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	// Cache is disabled by default, no store expected.
	if state.store != nil {
		t.Fatal("store initialised despite cache being disabled")
	}
	defer state.logger.Close()
	defer state.observabilityShutdown(context.Background())
}

func TestExecuteInitStepsRejectsUnsatisfiedDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "second",
			DependsOn: []string{"first"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected dependency error")
	}
}

func TestExecuteInitStepsRejectsMissingExecute(t *testing.T) {
	steps := []initStep{{ID: "noop"}}
	if err := executeInitSteps(context.Background(), steps, &appState{}); err == nil {
		t.Fatal("expected missing execute error")
	}
}

func TestInitCacheStepBuildsMemoryStore(t *testing.T) {
	t.Setenv("LEAFAI_CONFIG", writeTestConfig(t))

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph()[:2], state); err != nil {
		t.Fatalf("base init failed: %v", err)
	}
	defer state.logger.Close()

	state.config.Cache.Enabled = true
	state.config.Cache.Driver = "memory"

	if err := initCacheStep(context.Background(), state); err != nil {
		t.Fatalf("initCacheStep failed: %v", err)
	}
	if state.store == nil {
		t.Fatal("store not initialised")
	}
	state.store.Close()
}
