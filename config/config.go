// Package config loads process configuration from an optional yaml file
// pointed at by VECTILE_CONFIG, with environment variable overrides under
// the VECTILE_ prefix.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v8"
	"gopkg.in/yaml.v3"

	"github.com/vectile/vectile/httpapi"
)

// ---------------------------

const VECTILE_CONFIG = "VECTILE_CONFIG"

type ConfigMap struct {
	// Global debug flag
	Debug bool `yaml:"debug"`
	// Pretty log output
	PrettyLogOutput bool `yaml:"prettyLogOutput"`
	// Path of the backing database file, empty means in-memory
	StorePath string `yaml:"storePath"`
	// HTTP Parameters
	HttpApi httpapi.HttpApiConfig `yaml:"httpApi"`
}

func LoadConfig() (ConfigMap, error) {
	configMap := ConfigMap{
		HttpApi: httpapi.HttpApiConfig{
			HttpHost: "localhost",
			HttpPort: 8080,
		},
	}
	// The yaml file is optional, environment variables alone can configure
	// the process
	if cFilePath, ok := os.LookupEnv(VECTILE_CONFIG); ok {
		cFile, err := os.Open(cFilePath)
		if err != nil {
			return configMap, fmt.Errorf("failed to open config file %s: %w", cFilePath, err)
		}
		defer cFile.Close()
		decoder := yaml.NewDecoder(cFile)
		if err := decoder.Decode(&configMap); err != nil {
			return configMap, fmt.Errorf("failed to parse config file %s: %w", cFilePath, err)
		}
	}
	// ---------------------------
	opts := env.Options{Prefix: "VECTILE_", UseFieldNameByDefault: true}
	if err := env.ParseWithOptions(&configMap, opts); err != nil {
		return configMap, fmt.Errorf("failed to parse environment: %w", err)
	}
	return configMap, nil
}
