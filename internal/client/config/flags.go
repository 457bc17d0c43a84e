package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Имена флагов
const (
	FlagConfig       = "config"
	FlagAPIBaseURL   = "server"
	FlagTimeout      = "timeout"
	FlagDBPath       = "db"
	FlagCachePath    = "cache"
	FlagPassphrase   = "passphrase"
	FlagLogLevel     = "log-level"
	FlagLogFormat    = "log-format"
	FlagAuthorizeURL = "authorize-url"
	FlagClientID     = "client-id"
	FlagCallbackAddr = "callback-addr"
	FlagMockLogin    = "mock-login"
)

// BindFlags регистрирует флаги конфигурации в fs.
// Значения по умолчанию берутся из Default().
func BindFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagConfig, "", "path to JSON config file")
	fs.String(FlagAPIBaseURL, d.APIBaseURL, "API base URL")
	fs.Duration(FlagTimeout, d.RequestTimeout, "HTTP request timeout")
	fs.String(FlagDBPath, d.DBPath, "path to local credential database")
	fs.String(FlagCachePath, d.CachePath, "path to match history cache")
	fs.String(FlagPassphrase, "", "keyring passphrase for sealing tokens (prefer "+EnvPassphrase+")")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.LogFormat, "log format: text, json")
	fs.String(FlagAuthorizeURL, d.AuthorizeURL, "external provider authorization URL")
	fs.String(FlagClientID, d.ClientID, "external provider client id")
	fs.String(FlagCallbackAddr, d.CallbackAddr, "loopback address for the external login callback")
	fs.Bool(FlagMockLogin, d.MockLogin, "enable development mock login")
}

// LoadFlags накладывает на c только явно заданные флаги
func (c *Config) LoadFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagAPIBaseURL:   &c.APIBaseURL,
		FlagDBPath:       &c.DBPath,
		FlagCachePath:    &c.CachePath,
		FlagPassphrase:   &c.Passphrase,
		FlagLogLevel:     &c.LogLevel,
		FlagLogFormat:    &c.LogFormat,
		FlagAuthorizeURL: &c.AuthorizeURL,
		FlagClientID:     &c.ClientID,
		FlagCallbackAddr: &c.CallbackAddr,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to read flag --%s: %w", name, err)
		}
		*dst = v
	}

	if fs.Changed(FlagTimeout) {
		d, err := fs.GetDuration(FlagTimeout)
		if err != nil {
			return fmt.Errorf("failed to read flag --%s: %w", FlagTimeout, err)
		}
		c.RequestTimeout = d
	}

	if fs.Changed(FlagMockLogin) {
		b, err := fs.GetBool(FlagMockLogin)
		if err != nil {
			return fmt.Errorf("failed to read flag --%s: %w", FlagMockLogin, err)
		}
		c.MockLogin = b
	}

	return nil
}
