package neo4j

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Preset is the on-disk shape of a harness preset file: a YAML document that
// seeds a configuration, giving CI a file-based override channel beside the
// environment-variable one. Empty fields keep the environment-seeded
// defaults.
type Preset struct {
	Version     string   `mapstructure:"version"`
	User        string   `mapstructure:"user"`
	Password    string   `mapstructure:"password"`
	DisableAuth bool     `mapstructure:"disableAuth"`
	Enterprise  bool     `mapstructure:"enterprise"`
	Plugins     []string `mapstructure:"plugins" validate:"dive,required"`
}

// LoadPreset reads and validates a preset YAML file and applies it on top of
// an environment-seeded configuration.
func LoadPreset(filePath string) (Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("preset file not found: %s", filePath)
	}

	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read preset file: %w", err)
	}

	var preset Preset
	if err := v.Unmarshal(&preset); err != nil {
		return Config{}, fmt.Errorf("failed to parse preset file - malformed YAML: %w", err)
	}

	if err := validate.Struct(&preset); err != nil {
		return Config{}, fmt.Errorf("invalid preset file: %w", err)
	}

	return preset.apply(FromEnv())
}

// apply layers the preset's explicit fields over the given configuration.
func (p Preset) apply(cfg Config) (Config, error) {
	var err error
	if p.Version != "" {
		if cfg, err = cfg.WithVersion(p.Version); err != nil {
			return cfg, err
		}
	}
	if p.User != "" {
		cfg = cfg.WithUser(p.User)
	}
	if p.Password != "" {
		cfg = cfg.WithPassword(p.Password)
	}
	if p.DisableAuth {
		cfg = cfg.WithoutAuthentication()
	}
	if len(p.Plugins) > 0 {
		plugins := make([]Plugin, 0, len(p.Plugins))
		for _, name := range p.Plugins {
			plugins = append(plugins, PluginByName(name))
		}
		cfg = cfg.WithPlugins(plugins...)
	}
	if p.Enterprise {
		if cfg, err = cfg.WithEnterpriseEdition(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
