package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonConfig DTO для чтения JSON файла. Все поля опциональны:
// отсутствующие не перекрывают текущие значения.
type jsonConfig struct {
	APIBaseURL     *string `json:"api_base_url"`
	RequestTimeout *string `json:"request_timeout"`
	DBPath         *string `json:"db_path"`
	CachePath      *string `json:"cache_path"`
	LogLevel       *string `json:"log_level"`
	LogFormat      *string `json:"log_format"`
	AuthorizeURL   *string `json:"authorize_url"`
	ClientID       *string `json:"client_id"`
	CallbackAddr   *string `json:"callback_addr"`
	MockLogin      *bool   `json:"mock_login"`
}

// LoadJSON накладывает значения из JSON файла path на c.
// Длительности задаются строками вида "30s".
func (c *Config) LoadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.APIBaseURL, jc.APIBaseURL)
	setString(&c.DBPath, jc.DBPath)
	setString(&c.CachePath, jc.CachePath)
	setString(&c.LogLevel, jc.LogLevel)
	setString(&c.LogFormat, jc.LogFormat)
	setString(&c.AuthorizeURL, jc.AuthorizeURL)
	setString(&c.ClientID, jc.ClientID)
	setString(&c.CallbackAddr, jc.CallbackAddr)

	if jc.MockLogin != nil {
		c.MockLogin = *jc.MockLogin
	}

	if jc.RequestTimeout != nil {
		d, err := time.ParseDuration(*jc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
