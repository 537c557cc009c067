package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/pandal-client/internal/app"
)

// envPrefix marks configuration variables, e.g. PANDAL_API__BASE_URL → api.base_url.
const envPrefix = "PANDAL_"

// configFlagKeys maps configuration flags to their config keys. Command inputs
// such as --password are absent and never reach the config.
var configFlagKeys = map[string]string{
	"log-level":        "log_level",
	"log-format":       "log_format",
	"log-exporter":     "log_exporter",
	"api--base-url":    "api.base_url",
	"api--timeout":     "api.timeout",
	"storage--backend": "storage.backend",
	"storage--file":    "storage.file",
	"refresh--mode":    "refresh.mode",
}

// configSource is one layer of configuration input.
type configSource struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// loadConfig merges the config file, PANDAL_* environment variables and CLI
// flags, each overriding the previous one, then applies defaults and validates.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	var sources []configSource
	if configPath != "" {
		sources = append(sources, configSource{"config file", file.Provider(configPath), toml.Parser()})
	}
	sources = append(sources, configSource{"environment variables", env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environFunc,
	}), nil})
	if cmd != nil {
		sources = append(sources, configSource{"CLI flags", confmap.Provider(flagValues(cmd), "."), nil})
	}

	k := koanf.New(".")
	for _, src := range sources {
		if err := k.Load(src.provider, src.parser); err != nil {
			return nil, fmt.Errorf("loading %s: %w", src.name, err)
		}
	}

	config := &app.Config{}
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// envKey turns PANDAL_STORAGE__KEYRING_SERVICE into storage.keyring_service.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", ".")), value
}

// flagValues collects explicitly set configuration flags, including those of
// parent commands, keyed by config key.
func flagValues(cmd *cli.Command) map[string]any {
	values := make(map[string]any)
	for flag, key := range configFlagKeys {
		// Unset flags would mask the file and environment with their defaults
		if !cmd.IsSet(flag) {
			continue
		}
		if value := cmd.Value(flag); value != nil {
			values[key] = value
		}
	}
	return values
}
