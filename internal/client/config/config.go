// Package config загружает настройки клиента pongdash.
//
// Источники в порядке приоритета (каждый следующий перекрывает предыдущий):
//
//  1. значения по умолчанию (Default);
//  2. JSON файл, указанный флагом --config или PONGDASH_CONFIG;
//  3. переменные окружения PONGDASH_*;
//  4. явно заданные флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	clientapi "github.com/iudanet/pongdash/internal/client/api"
	"github.com/iudanet/pongdash/internal/client/oauth"
)

// Config holds runtime settings of the pongdash client
type Config struct {
	APIBaseURL     string
	DBPath         string
	CachePath      string
	Passphrase     string // только env или флаг, в JSON не читается
	LogLevel       string
	LogFormat      string
	AuthorizeURL   string
	ClientID       string
	CallbackAddr   string
	RequestTimeout time.Duration
	MockLogin      bool
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		APIBaseURL:     clientapi.DefaultBaseURL,
		RequestTimeout: clientapi.DefaultTimeout,
		DBPath:         "pongdash.db",
		CachePath:      "pongdash-cache.db",
		LogLevel:       "warn",
		LogFormat:      "text",
		AuthorizeURL:   oauth.DefaultAuthorizeURL,
		ClientID:       "pongdash-cli",
		CallbackAddr:   oauth.DefaultCallbackAddr,
	}
}

// Validate проверяет значения после слияния всех источников
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid api base url %q", c.APIBaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
