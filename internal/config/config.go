package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultAdvanceDelayMS is the transition delay between an advance request
// and the cursor update.
const DefaultAdvanceDelayMS = 150

// Config holds application configuration.
type Config struct {
	// CatalogPath points at a JSON or YAML prompt catalog.
	// Empty means the catalog embedded in the binary.
	CatalogPath string `json:"catalog_path,omitempty"`

	// AdvanceDelayMS is the delay in milliseconds before an advance moves the cursor.
	// nil means DefaultAdvanceDelayMS; 0 disables the delay.
	AdvanceDelayMS *int `json:"advance_delay_ms,omitempty"`

	// ShuffleSeed makes shuffles reproducible when non-zero.
	// 0 seeds from crypto/rand.
	ShuffleSeed uint64 `json:"shuffle_seed,omitempty"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: prompt, deck, filter, favorite, hidden, list.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	delay := DefaultAdvanceDelayMS
	return &Config{
		AdvanceDelayMS: &delay,
		LogLevel:       "info",
	}
}

// AdvanceDelay returns the configured transition delay.
func (c *Config) AdvanceDelay() time.Duration {
	if c == nil || c.AdvanceDelayMS == nil {
		return DefaultAdvanceDelayMS * time.Millisecond
	}
	if *c.AdvanceDelayMS <= 0 {
		return 0
	}
	return time.Duration(*c.AdvanceDelayMS) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.spark.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.spark) and repo (.spark) directories.
// Repo config is found by walking upward from startDir to find the nearest .spark/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// A relative catalog path in the repo config is resolved against the repo root.
	if repo.CatalogPath != "" && !filepath.IsAbs(repo.CatalogPath) && repoConfigPath != "" {
		repo.CatalogPath = filepath.Join(filepath.Dir(filepath.Dir(repoConfigPath)), repo.CatalogPath)
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .spark/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".spark", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if set, else base
	result.CatalogPath = overlay.CatalogPath
	if result.CatalogPath == "" {
		result.CatalogPath = base.CatalogPath
	}

	result.AdvanceDelayMS = overlay.AdvanceDelayMS
	if result.AdvanceDelayMS == nil {
		result.AdvanceDelayMS = base.AdvanceDelayMS
	}

	result.ShuffleSeed = overlay.ShuffleSeed
	if result.ShuffleSeed == 0 {
		result.ShuffleSeed = base.ShuffleSeed
	}

	result.LogLevel = strings.ToLower(strings.TrimSpace(overlay.LogLevel))
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
