package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Load собирает конфигурацию: defaults → JSON → env → флаги.
// fs должен быть зарегистрирован через BindFlags и уже разобран.
func Load(fs *pflag.FlagSet, lookup LookupEnv) (*Config, error) {
	cfg := Default()

	// 1. JSON файл: флаг приоритетнее переменной окружения
	path, _ := lookup(EnvConfig)
	if fs != nil && fs.Changed(FlagConfig) {
		p, err := fs.GetString(FlagConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to read flag --%s: %w", FlagConfig, err)
		}
		path = p
	}
	if path != "" {
		if err := cfg.LoadJSON(path); err != nil {
			return nil, err
		}
	}

	// 2. Окружение
	if err := cfg.LoadEnv(lookup); err != nil {
		return nil, err
	}

	// 3. Флаги
	if fs != nil {
		if err := cfg.LoadFlags(fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
