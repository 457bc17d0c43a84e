package config

import (
	"fmt"
	"strconv"
	"time"
)

// Переменные окружения
const (
	EnvPrefix         = "PONGDASH_"
	EnvConfig         = EnvPrefix + "CONFIG"
	EnvAPIBaseURL     = EnvPrefix + "API_URL"
	EnvRequestTimeout = EnvPrefix + "TIMEOUT"
	EnvDBPath         = EnvPrefix + "DB"
	EnvCachePath      = EnvPrefix + "CACHE"
	EnvPassphrase     = EnvPrefix + "PASSPHRASE"
	EnvLogLevel       = EnvPrefix + "LOG_LEVEL"
	EnvLogFormat      = EnvPrefix + "LOG_FORMAT"
	EnvAuthorizeURL   = EnvPrefix + "AUTHORIZE_URL"
	EnvClientID       = EnvPrefix + "CLIENT_ID"
	EnvCallbackAddr   = EnvPrefix + "CALLBACK_ADDR"
	EnvMockLogin      = EnvPrefix + "MOCK_LOGIN"
)

// LookupEnv сигнатура os.LookupEnv
type LookupEnv func(key string) (string, bool)

// LoadEnv накладывает значения переменных окружения PONGDASH_* на c.
// Пустая переменная считается незаданной.
func (c *Config) LoadEnv(lookup LookupEnv) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	strs := map[string]*string{
		EnvAPIBaseURL:   &c.APIBaseURL,
		EnvDBPath:       &c.DBPath,
		EnvCachePath:    &c.CachePath,
		EnvPassphrase:   &c.Passphrase,
		EnvLogLevel:     &c.LogLevel,
		EnvLogFormat:    &c.LogFormat,
		EnvAuthorizeURL: &c.AuthorizeURL,
		EnvClientID:     &c.ClientID,
		EnvCallbackAddr: &c.CallbackAddr,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	if v, ok := get(EnvRequestTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRequestTimeout, err)
		}
		c.RequestTimeout = d
	}

	if v, ok := get(EnvMockLogin); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMockLogin, err)
		}
		c.MockLogin = b
	}

	return nil
}
