package debugger

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds cueldbg's persistent settings: how many words of
// disassembly context to show around the current IP, and whether
// breakpoints should survive across debugger sessions. Grounded on the
// corpus's debugger config pattern (arm_emulator's config.Config /
// config.Debugger / config.Display), scoped down to the two knobs
// CUEL's simpler, register-less, memory-less debugger actually has.
type Config struct {
	Debugger struct {
		DisasmContext      int  `toml:"disasm_context"`
		PersistBreakpoints bool `toml:"persist_breakpoints"`
	} `toml:"debugger"`
}

// DefaultConfig returns the built-in settings used when no config file
// is present: an 8-word disassembly window (tui.go's prior hardcoded
// value) and no breakpoint persistence.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Debugger.DisasmContext = 8
	cfg.Debugger.PersistBreakpoints = false
	return cfg
}

// ConfigPath returns the default per-user config file location,
// ~/.config/cueldbg/config.toml on Unix, falling back to the current
// directory if the home directory can't be resolved.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cueldbg.toml"
	}
	return filepath.Join(home, ".config", "cueldbg", "config.toml")
}

// LoadConfig reads path, returning DefaultConfig unchanged if the file
// does not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BreakpointFile derives the sidecar breakpoint-persistence file path
// for a given bytecode file: "<path>.breakpoints.toml" alongside it.
func BreakpointFile(bytecodePath string) string {
	return bytecodePath + ".breakpoints.toml"
}

// persistedBreakpoints is the on-disk shape for saved breakpoints.
type persistedBreakpoints struct {
	Addresses []int64 `toml:"addresses"`
}

// SaveBreakpoints writes bm's addresses to path in TOML form.
func SaveBreakpoints(bm *BreakpointManager, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(persistedBreakpoints{Addresses: bm.List()})
}

// LoadBreakpoints reads addresses from path into bm. A missing file is
// not an error — it just means nothing was ever persisted.
func LoadBreakpoints(bm *BreakpointManager, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	var saved persistedBreakpoints
	if _, err := toml.DecodeFile(path, &saved); err != nil {
		return err
	}
	for _, addr := range saved.Addresses {
		bm.Set(addr)
	}
	return nil
}
