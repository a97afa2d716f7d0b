/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the check manager
type Config struct {
	// configFileUsed is the path to the config file that was loaded (empty if none)
	configFileUsed string

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string `mapstructure:"log-level"`

	// ListenAddress is the address the API server binds to
	ListenAddress string `mapstructure:"listen-address"`

	// APIBaseURL is the absolute base URL the service is reachable at.
	// Used to build the links sections of responses. Required.
	APIBaseURL string `mapstructure:"api-base-url"`

	// HookDirPath is a directory of hook plugins to load at startup
	HookDirPath string `mapstructure:"hook-dir-path"`

	// Backend selection and backend-specific settings
	Backend BackendConfig `mapstructure:"backend"`

	// K8s backend settings
	K8s K8sConfig `mapstructure:"k8s"`

	// Auth settings for the builtin hook set
	Auth AuthConfig `mapstructure:"auth"`

	// Telemetry settings stamped onto materialised checks
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BackendConfig selects and configures the check backend
type BackendConfig struct {
	// Type is the backend type (k8s, mock, remote, aggregation)
	Type string `mapstructure:"type" json:"type"`

	// RemoteURLs are the base URLs of downstream check managers.
	// Used by the remote backend (first entry) and the aggregation backend (all entries).
	RemoteURLs []string `mapstructure:"remote-urls" json:"remoteURLs,omitempty"`
}

// K8sConfig configures the Kubernetes backend
type K8sConfig struct {
	// TemplatePath is a directory of check template plugins to load at startup
	TemplatePath string `mapstructure:"template-path" json:"templatePath,omitempty"`

	// DefaultRunnerImage overrides the image the shipped templates run checks with
	DefaultRunnerImage string `mapstructure:"default-runner-image" json:"defaultRunnerImage,omitempty"`

	// DefaultOIDCMitmproxyImage overrides the image of the OIDC proxy sidecar
	DefaultOIDCMitmproxyImage string `mapstructure:"default-oidc-mitmproxy-image" json:"defaultOIDCMitmproxyImage,omitempty"`
}

// AuthConfig configures the builtin auth hook set
type AuthConfig struct {
	// Enabled turns on the builtin hook set (token-forwarding proxy auth)
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// OpenIDConnectURL is the OIDC discovery document the fronting proxy uses
	OpenIDConnectURL string `mapstructure:"open-id-connect-url" json:"openIDConnectURL,omitempty"`

	// OpenIDConnectAudience is the expected token audience
	OpenIDConnectAudience string `mapstructure:"open-id-connect-audience" json:"openIDConnectAudience,omitempty"`
}

// TelemetryConfig configures the telemetry wiring added to every check
type TelemetryConfig struct {
	// OTLPEndpoint is the collector endpoint injected into check containers
	OTLPEndpoint string `mapstructure:"otlp-endpoint" json:"otlpEndpoint,omitempty"`

	// CollectorTLSSecret names the secret with the collector client certificate
	CollectorTLSSecret string `mapstructure:"collector-tls-secret" json:"collectorTLSSecret,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		ListenAddress: ":8080",
		Backend: BackendConfig{
			Type: "k8s",
		},
	}
}

// BindFlags binds configuration flags to pflags
func BindFlags(flags *pflag.FlagSet) {
	// Top-level
	flags.String("config", "", "Path to config file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("listen-address", ":8080", "API server listen address")
	flags.String("api-base-url", "", "Absolute base URL the service is reachable at (required)")
	flags.String("hook-dir-path", "", "Directory of hook plugins to load at startup")

	// Backend
	flags.String("backend.type", "k8s", "Check backend type (k8s, mock, remote, aggregation)")
	flags.StringSlice("backend.remote-urls", nil, "Base URLs of downstream check managers")

	// K8s backend
	flags.String("k8s.template-path", "", "Directory of check template plugins to load at startup")
	flags.String("k8s.default-runner-image", "", "Override for the default check runner image")
	flags.String("k8s.default-oidc-mitmproxy-image", "", "Override for the OIDC proxy sidecar image")

	// Auth
	flags.Bool("auth.enabled", false, "Enable the builtin auth hook set")
	flags.String("auth.open-id-connect-url", "", "OIDC discovery document URL")
	flags.String("auth.open-id-connect-audience", "", "Expected token audience")

	// Telemetry
	flags.String("telemetry.otlp-endpoint", "", "OTLP collector endpoint injected into check containers")
	flags.String("telemetry.collector-tls-secret", "", "Secret with the collector client certificate")
}

// Load loads configuration from flags, environment, and config file
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults from DefaultConfig
	defaults := DefaultConfig()
	v.SetDefault("log-level", defaults.LogLevel)
	v.SetDefault("listen-address", defaults.ListenAddress)
	v.SetDefault("backend.type", defaults.Backend.Type)

	// Bind flags
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	// Environment variables: RH_CHECK_API_BASE_URL, RH_CHECK_BACKEND_TYPE,
	// RH_CHECK_K8S_TEMPLATE_PATH, and so on.
	v.SetEnvPrefix("RH_CHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// A few settings are shared with other components and keep their
	// unprefixed environment names.
	_ = v.BindEnv("telemetry.otlp-endpoint", "RH_CHECK_TELEMETRY_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("telemetry.collector-tls-secret", "RH_CHECK_TELEMETRY_COLLECTOR_TLS_SECRET", "CHECK_MANAGER_COLLECTOR_TLS_SECRET")
	_ = v.BindEnv("auth.open-id-connect-url", "RH_CHECK_AUTH_OPEN_ID_CONNECT_URL", "OPEN_ID_CONNECT_URL")
	_ = v.BindEnv("auth.open-id-connect-audience", "RH_CHECK_AUTH_OPEN_ID_CONNECT_AUDIENCE", "OPEN_ID_CONNECT_AUDIENCE")

	// Config file
	var configFileUsed string
	if configFile, _ := flags.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		configFileUsed = v.ConfigFileUsed()
	} else {
		// Try default locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/check-manager")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err == nil {
			configFileUsed = v.ConfigFileUsed()
		}
		// Ignore error if no config file found - will use defaults
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store which config file was used (empty string if none)
	cfg.configFileUsed = configFileUsed

	return cfg, cfg.Validate()
}

// Validate reports configuration the service cannot start with
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api-base-url is required (RH_CHECK_API_BASE_URL)")
	}
	switch c.Backend.Type {
	case "k8s", "mock":
	case "remote":
		if len(c.Backend.RemoteURLs) == 0 {
			return fmt.Errorf("backend.remote-urls is required for the remote backend")
		}
	case "aggregation":
		if len(c.Backend.RemoteURLs) == 0 {
			return fmt.Errorf("backend.remote-urls is required for the aggregation backend")
		}
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}
	return nil
}

// ConfigFileUsed returns the path to the config file that was loaded (empty if none)
func (c *Config) ConfigFileUsed() string {
	return c.configFileUsed
}
