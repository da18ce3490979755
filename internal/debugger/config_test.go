package debugger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Debugger.DisasmContext != 8 {
		t.Errorf("DisasmContext = %d, want 8", cfg.Debugger.DisasmContext)
	}
	if cfg.Debugger.PersistBreakpoints {
		t.Error("PersistBreakpoints should default to false")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Debugger.DisasmContext != 8 {
		t.Errorf("DisasmContext = %d, want 8", cfg.Debugger.DisasmContext)
	}
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[debugger]\ndisasm_context = 3\npersist_breakpoints = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Debugger.DisasmContext != 3 {
		t.Errorf("DisasmContext = %d, want 3", cfg.Debugger.DisasmContext)
	}
	if !cfg.Debugger.PersistBreakpoints {
		t.Error("PersistBreakpoints should be true")
	}
}

func TestSaveAndLoadBreakpointsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cuby.breakpoints.toml")
	bm := NewBreakpointManager()
	bm.Set(4)
	bm.Set(9)

	if err := SaveBreakpoints(bm, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded := NewBreakpointManager()
	if err := LoadBreakpoints(loaded, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded.Has(4) || !loaded.Has(9) {
		t.Errorf("loaded breakpoints = %v, want [4 9]", loaded.List())
	}
}

func TestLoadBreakpointsMissingFileIsNotAnError(t *testing.T) {
	bm := NewBreakpointManager()
	err := LoadBreakpoints(bm, filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bm.List()) != 0 {
		t.Errorf("expected no breakpoints loaded, got %v", bm.List())
	}
}

func TestBreakpointFileDerivesSidecarPath(t *testing.T) {
	got := BreakpointFile("prog.cuby")
	want := "prog.cuby.breakpoints.toml"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
