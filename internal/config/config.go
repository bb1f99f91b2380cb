// Package config loads the runtime YAML document described in the
// external-interfaces section: a document with shell-style
// `${VAR}`/`${VAR:default}` environment expansion, decoded onto a
// struct mirroring the document's own top-level key layout.
package config

import (
	"os"
	"regexp"

	"github.com/oracle-trader/runtime/internal/errs"
	"gopkg.in/yaml.v3"
)

// Broker carries the connection and credential fields for the broker
// client.
type Broker struct {
	Type         string `yaml:"type"`
	Environment  string `yaml:"environment"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	AccountID    string `yaml:"account_id"`
}

// Predictor carries model-loading settings.
type Predictor struct {
	ModelsDir  string `yaml:"models_dir"`
	WarmupBars int    `yaml:"warmup_bars"`
	MinBars    int    `yaml:"min_bars"`
}

// Executor carries default risk parameters and the per-symbol config
// file location.
type Executor struct {
	ConfigFile    string  `yaml:"config_file"`
	DefaultSLUsd  float64 `yaml:"default_sl_usd"`
	DefaultTPUsd  float64 `yaml:"default_tp_usd"`
}

// Hub carries the telemetry uplink's connection settings.
type Hub struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	InstanceID string `yaml:"instance_id"`
}

// Logging carries the zap logger's level and optional file sink.
type Logging struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Persistence carries the durable-storage uplink's enablement flag.
type Persistence struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the fully decoded runtime document, per §6's
// "Runtime configuration" interface.
type Config struct {
	Broker           Broker      `yaml:"broker"`
	Timeframe        string      `yaml:"timeframe"`
	InitialBalance   float64     `yaml:"initial_balance"`
	CloseOnExit      bool        `yaml:"close_on_exit"`
	CloseOnDayChange bool        `yaml:"close_on_day_change"`
	Predictor        Predictor   `yaml:"predictor"`
	Executor         Executor    `yaml:"executor"`
	Hub              Hub         `yaml:"hub"`
	Persistence      Persistence `yaml:"persistence"`
	SupabaseURL      string      `yaml:"supabase_url"`
	SupabaseKey      string      `yaml:"supabase_key"`
	Logging          Logging     `yaml:"logging"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// expandEnv replaces every `${VAR}` or `${VAR:default}` occurrence in
// raw with the named environment variable, or its inline default when
// the variable is unset or empty.
func expandEnv(raw []byte) []byte {
	return envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		name, def := string(groups[1]), string(groups[2])
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return []byte(v)
		}
		return []byte(def)
	})
}

// Load reads, env-expands, and decodes the YAML document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.CodeBundleInvalid, "failed to read config file", err)
	}

	expanded := expandEnv(raw)

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errs.Wrap(errs.CodeBundleInvalid, "failed to parse config file", err)
	}
	return &cfg, nil
}
