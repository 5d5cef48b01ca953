package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// configDelimiter separates nesting levels in configuration keys, e.g.
// "server.listenAddress".
const configDelimiter = "."

// configEnvironmentPrefix is stripped from environment variable names before
// they are mapped onto configuration keys.
const configEnvironmentPrefix = "JSONRPCD_"

// config holds the settings that drive the example daemon.
type config struct {
	// ListenAddress is the TCP address the HTTP server binds to.
	ListenAddress string `koanf:"listenAddress"`

	// LogLevel is loaded and reported by the config command; the daemon's
	// logger does not read it.
	LogLevel string `koanf:"logLevel"`

	// MethodTimeout bounds how long a single JSON-RPC call may run before
	// its context is canceled.
	MethodTimeout time.Duration `koanf:"methodTimeout"`
}

// defaultConfig provides the values used when neither the YAML file nor the
// environment overrides a setting.
var defaultConfig = map[string]interface{}{
	"listenAddress": ":8080",
	"logLevel":      "info",
	"methodTimeout": "30s",
}

// loadConfig builds a config by layering defaults, a YAML file, then
// environment variable overrides, in that order.
func loadConfig(path string) (config, error) {
	k := koanf.New(configDelimiter)

	if err := k.Load(confmap.Provider(defaultConfig, configDelimiter), nil); err != nil {
		return config{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return config{}, err
	}

	if err := k.Load(env.Provider(configEnvironmentPrefix, configDelimiter, envKeyMapper), nil); err != nil {
		return config{}, err
	}

	var c config
	if err := k.Unmarshal("", &c); err != nil {
		return config{}, err
	}

	return c, nil
}

// envKeyMapper maps an environment variable name such as
// JSONRPCD_LISTENADDRESS onto the "listenAddress" configuration key.
func envKeyMapper(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, configEnvironmentPrefix))
	for k := range defaultConfig {
		if strings.ToLower(k) == key {
			return k
		}
	}
	return key
}
