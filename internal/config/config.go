// Package config loads settings.toml, spec.md §6's configuration
// surface, via viper the way the teacher's cmd/codegrep/root.go loads
// .codegrep.yaml: a bound flag set overlaid on a config file overlaid on
// environment variables, with viper's own TOML decoding (backed by
// pelletier/go-toml/v2, the format the teacher's indirect dependency set
// already carries) rather than YAML.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the fully-resolved configuration spec.md §6 names.
type Settings struct {
	Semantic    SemanticSettings               `mapstructure:"semantic"`
	Indexing    IndexingSettings               `mapstructure:"indexing"`
	Languages   map[string]LanguageSettings    `mapstructure:"languages"`
	Guidance    GuidanceSettings               `mapstructure:"guidance"`
	Server      ServerSettings                 `mapstructure:"server"`
	Performance PerformanceSettings            `mapstructure:"performance"`
}

type SemanticSettings struct {
	Model string `mapstructure:"model"`
}

type IndexingSettings struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

// LanguageSettings is one `languages.<id>` block. ConfigFiles only
// applies to languages that consume project config (TypeScript's
// tsconfig.json list per spec.md §4.E).
type LanguageSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	ConfigFiles []string `mapstructure:"config_files"`
}

// GuidanceSettings configures the §4.K guidance templates and the
// result-count threshold that switches between "one" / "many" wording.
type GuidanceSettings struct {
	Enabled   bool                         `mapstructure:"enabled"`
	Threshold int                          `mapstructure:"threshold"`
	Templates map[string]GuidanceTemplate  `mapstructure:"templates"`
}

type GuidanceTemplate struct {
	NoResults       string   `mapstructure:"no_results"`
	SingleResult    string   `mapstructure:"single_result"`
	MultipleResults string   `mapstructure:"multiple_results"`
	Custom          []string `mapstructure:"custom"`
}

type ServerSettings struct {
	WatchIntervalMS int `mapstructure:"watch_interval"`
}

type PerformanceSettings struct {
	CacheSizeMB     int `mapstructure:"cache_size_mb"`
	VectorCacheSize int `mapstructure:"vector_cache_size"`
}

// Defaults mirrors the teacher's pattern of hard-coded fallbacks applied
// before a config file is read, so a workspace with no settings.toml at
// all still runs with sane values.
func Defaults() Settings {
	return Settings{
		Semantic: SemanticSettings{Model: "minilm-l6-v2"},
		Indexing: IndexingSettings{MaxFileSizeMB: 5},
		Languages: map[string]LanguageSettings{
			"go": {Enabled: true}, "python": {Enabled: true}, "typescript": {Enabled: true},
			"rust": {Enabled: true}, "php": {Enabled: true}, "c": {Enabled: true},
			"cpp": {Enabled: true}, "csharp": {Enabled: true},
		},
		Guidance: GuidanceSettings{Enabled: true, Threshold: 20},
		Server:   ServerSettings{WatchIntervalMS: 500},
		Performance: PerformanceSettings{CacheSizeMB: 256, VectorCacheSize: 64},
	}
}

// Load reads settings.toml from root (plus CODANNA_-prefixed environment
// overrides) into a Settings, seeded with Defaults so every field is
// populated even when the file omits it.
func Load(root string) (Settings, error) {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("toml")
	v.AddConfigPath(root)

	v.SetEnvPrefix("CODANNA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	defaults := Defaults()
	v.SetDefault("semantic.model", defaults.Semantic.Model)
	v.SetDefault("indexing.max_file_size_mb", defaults.Indexing.MaxFileSizeMB)
	v.SetDefault("guidance.enabled", defaults.Guidance.Enabled)
	v.SetDefault("guidance.threshold", defaults.Guidance.Threshold)
	v.SetDefault("server.watch_interval", defaults.Server.WatchIntervalMS)
	v.SetDefault("performance.cache_size_mb", defaults.Performance.CacheSizeMB)
	v.SetDefault("performance.vector_cache_size", defaults.Performance.VectorCacheSize)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Settings{}, fmt.Errorf("config: reading settings.toml: %w", err)
		}
	}

	settings := defaults
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("config: decoding settings: %w", err)
	}
	if settings.Languages == nil {
		settings.Languages = defaults.Languages
	}
	return settings, nil
}
