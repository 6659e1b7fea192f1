// Package config loads amaranth's configuration: the knowledge-base
// directory location, default search limit, default briefing detail tier,
// and an external editor command. Grounded on the teacher's root config.go:
// the same defaults → global → project → CLI-override precedence chain,
// the same hujson-based JSON-with-comments parsing, and the same
// XDG_CONFIG_HOME-aware global config path resolution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// ConfigFileName is the project-level config file's fixed name.
const ConfigFileName = ".amaranth.json"

// Config is amaranth's resolved configuration.
type Config struct {
	KBDir       string `json:"kb_dir"`
	SearchLimit int    `json:"search_limit"`
	DetailTier  string `json:"detail_tier"`
	Editor      string `json:"editor"`
}

// DefaultConfig returns the built-in defaults, the bottom of the
// precedence chain.
func DefaultConfig() Config {
	return Config{
		KBDir:       ".",
		SearchLimit: 20,
		DetailTier:  "summary",
		Editor:      os.Getenv("EDITOR"),
	}
}

// Sources records where each resolved field ultimately came from, for
// diagnostics (mirrors the teacher's ConfigSources).
type Sources struct {
	Global  string
	Project string
}

// Overrides carries CLI-flag-supplied values; a field is applied only when
// its Has* companion is true, so an unset flag never clobbers a
// lower-precedence value.
type Overrides struct {
	KBDir          string
	HasKBDir       bool
	SearchLimit    int
	HasSearchLimit bool
	DetailTier     string
	HasDetailTier  bool
	Editor         string
	HasEditor      bool
}

// LoadConfig resolves Config by merging, in ascending precedence: built-in
// defaults, the global user config, the project config (or an explicit
// configPath), then CLI overrides.
func LoadConfig(workDir, configPath string, overrides Overrides, env []string) (Config, Sources, error) {
	cfg := DefaultConfig()

	var sources Sources

	globalPath := getGlobalConfigPath(env)
	if globalPath != "" {
		if gc, ok, err := loadConfigFile(globalPath); err != nil {
			return Config{}, Sources{}, fmt.Errorf("load global config: %w", err)
		} else if ok {
			cfg = mergeConfig(cfg, gc)
			sources.Global = globalPath
		}
	}

	projectPath := configPath
	if projectPath == "" {
		projectPath = filepath.Join(workDir, ConfigFileName)
	}

	if pc, ok, err := loadConfigFile(projectPath); err != nil {
		return Config{}, Sources{}, fmt.Errorf("load project config: %w", err)
	} else if ok {
		cfg = mergeConfig(cfg, pc)
		sources.Project = projectPath
	}

	cfg = applyOverrides(cfg, overrides)

	if err := validateConfig(cfg); err != nil {
		return Config{}, Sources{}, err
	}

	return cfg, sources, nil
}

// getGlobalConfigPath returns the XDG-aware global config path, or "" if
// neither XDG_CONFIG_HOME nor HOME can be resolved from env.
func getGlobalConfigPath(env []string) string {
	lookup := func(key string) string {
		prefix := key + "="
		for _, kv := range env {
			if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
				return kv[len(prefix):]
			}
		}

		return ""
	}

	if xdg := lookup("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amaranth", "config.json")
	}

	if home := lookup("HOME"); home != "" {
		return filepath.Join(home, ".config", "amaranth", "config.json")
	}

	return ""
}

// partial mirrors Config but with pointer fields, so loadConfigFile can
// distinguish "absent" from "explicitly zero value".
type partial struct {
	KBDir       *string `json:"kb_dir"`
	SearchLimit *int    `json:"search_limit"`
	DetailTier  *string `json:"detail_tier"`
	Editor      *string `json:"editor"`
}

func loadConfigFile(path string) (partial, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return partial{}, false, nil
		}

		return partial{}, false, fmt.Errorf("read %s: %w", path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return partial{}, false, fmt.Errorf("parse %s: %w", path, err)
	}

	var p partial
	if err := json.Unmarshal(std, &p); err != nil {
		return partial{}, false, fmt.Errorf("decode %s: %w", path, err)
	}

	return p, true, nil
}

func mergeConfig(base Config, p partial) Config {
	if p.KBDir != nil {
		base.KBDir = *p.KBDir
	}

	if p.SearchLimit != nil {
		base.SearchLimit = *p.SearchLimit
	}

	if p.DetailTier != nil {
		base.DetailTier = *p.DetailTier
	}

	if p.Editor != nil {
		base.Editor = *p.Editor
	}

	return base
}

func applyOverrides(cfg Config, o Overrides) Config {
	if o.HasKBDir {
		cfg.KBDir = o.KBDir
	}

	if o.HasSearchLimit {
		cfg.SearchLimit = o.SearchLimit
	}

	if o.HasDetailTier {
		cfg.DetailTier = o.DetailTier
	}

	if o.HasEditor {
		cfg.Editor = o.Editor
	}

	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.SearchLimit <= 0 {
		return fmt.Errorf("%w: search_limit must be positive, got %d", ErrInvalidConfig, cfg.SearchLimit)
	}

	switch cfg.DetailTier {
	case "summary", "scan", "full":
	default:
		return fmt.Errorf("%w: detail_tier must be summary/scan/full, got %q", ErrInvalidConfig, cfg.DetailTier)
	}

	return nil
}

// FormatConfig renders cfg for diagnostic display (`amaranth print-config`
// CLI subcommand).
func FormatConfig(cfg Config, sources Sources) string {
	s := fmt.Sprintf("kb_dir=%s\nsearch_limit=%d\ndetail_tier=%s\neditor=%s\n",
		cfg.KBDir, cfg.SearchLimit, cfg.DetailTier, cfg.Editor)

	if sources.Global == "" && sources.Project == "" {
		s += "(defaults only)\n"
	}

	if sources.Global != "" {
		s += fmt.Sprintf("(global config: %s)\n", sources.Global)
	}

	if sources.Project != "" {
		s += fmt.Sprintf("(project config: %s)\n", sources.Project)
	}

	return s
}
