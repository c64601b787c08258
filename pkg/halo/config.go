package halo

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/harunnryd/halo/pkg/prompt"
)

type Config struct {
	Model         ModelConfig         `mapstructure:"model"`
	Transports    TransportsConfig    `mapstructure:"transports"`
	Loop          LoopConfig          `mapstructure:"loop"`
	Tools         ToolsConfig         `mapstructure:"tools"`
	Context       ContextConfig       `mapstructure:"context"`
	Prompts       prompt.Templates    `mapstructure:"prompts"`
	SystemPrompt  string              `mapstructure:"system_prompt"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type ModelConfig struct {
	Provider string         `mapstructure:"provider"`
	Host     string         `mapstructure:"host"`
	Port     int            `mapstructure:"port"`
	Name     string         `mapstructure:"name"`
	Settings map[string]any `mapstructure:"settings"`
}

type TransportsConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type LoopConfig struct {
	MaxToolIterations     int `mapstructure:"max_tool_iterations"`
	RequestTimeoutMS      int `mapstructure:"request_timeout_ms"`
	HealthCheckTimeoutMS  int `mapstructure:"health_check_timeout_ms"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`
	MaxRetries            int `mapstructure:"max_retries"`
	RetryBackoffMS        int `mapstructure:"retry_backoff_ms"`
}

type ToolsConfig struct {
	TimeoutMS int `mapstructure:"timeout_ms"`
}

type ContextConfig struct {
	MaxHistory     int `mapstructure:"max_history"`
	PruneThreshold int `mapstructure:"prune_threshold"`
}

type ObservabilityConfig struct {
	MetricsFile string `mapstructure:"metrics_file"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("model.provider", "ollama")
	v.SetDefault("model.host", "localhost")
	v.SetDefault("model.port", 11434)
	v.SetDefault("model.name", "mistral")
	v.SetDefault("transports.provider", "ws")
	v.SetDefault("loop.max_tool_iterations", 3)
	v.SetDefault("loop.request_timeout_ms", 30000)
	v.SetDefault("loop.health_check_timeout_ms", 10000)
	v.SetDefault("loop.max_concurrent_requests", 5)
	v.SetDefault("loop.max_retries", 1)
	v.SetDefault("loop.retry_backoff_ms", 200)
	v.SetDefault("tools.timeout_ms", 6000)
	v.SetDefault("context.max_history", 100)
	v.SetDefault("context.prune_threshold", 80)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Model:      ModelConfig{Provider: "ollama", Host: "localhost", Port: 11434, Name: "mistral"},
		Transports: TransportsConfig{Provider: "ws"},
		Loop: LoopConfig{
			MaxToolIterations:     3,
			RequestTimeoutMS:      30000,
			HealthCheckTimeoutMS:  10000,
			MaxConcurrentRequests: 5,
			MaxRetries:            1,
			RetryBackoffMS:        200,
		},
		Tools:       ToolsConfig{TimeoutMS: 6000},
		Context:     ContextConfig{MaxHistory: 100, PruneThreshold: 80},
		Environment: "development",
		LogLevel:    "info",
		LogFormat:   "text",
		Privacy:     PrivacyConfig{RedactPII: true},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model.Provider) == "" {
		return fmt.Errorf("model.provider is required")
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Port < 0 || c.Model.Port > 65535 {
		return fmt.Errorf("model.port out of range: %d", c.Model.Port)
	}
	if c.Context.PruneThreshold > 0 && c.Context.MaxHistory > 0 &&
		c.Context.PruneThreshold >= c.Context.MaxHistory {
		return fmt.Errorf("context.prune_threshold must be below context.max_history")
	}
	return nil
}

// Templates merges the configured overrides onto the built-in prompt set.
func (c *Config) Templates() prompt.Templates {
	return prompt.DefaultTemplates().Merge(c.Prompts)
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Model.Settings = expandSettings(cfg.Model.Settings)
	cfg.Transports.Settings = expandSettings(cfg.Transports.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
