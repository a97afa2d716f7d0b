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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	return flags
}

// ============================================================================
// Default Values Tests
// ============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, "k8s", cfg.Backend.Type)
	assert.Empty(t, cfg.APIBaseURL)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_DefaultValues(t *testing.T) {
	flags := newFlags(t)
	require.NoError(t, flags.Set("api-base-url", "https://checks.example.com"))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, "k8s", cfg.Backend.Type)
	assert.Equal(t, "https://checks.example.com", cfg.APIBaseURL)
	assert.Equal(t, "", cfg.ConfigFileUsed())
}

// ============================================================================
// Validation Tests
// ============================================================================

func TestLoad_RequiresBaseURL(t *testing.T) {
	_, err := Load(newFlags(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api-base-url")
}

func TestLoad_RejectsUnknownBackendType(t *testing.T) {
	flags := newFlags(t)
	require.NoError(t, flags.Set("api-base-url", "https://checks.example.com"))
	require.NoError(t, flags.Set("backend.type", "carrier-pigeon"))

	_, err := Load(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestLoad_RemoteBackendNeedsURLs(t *testing.T) {
	flags := newFlags(t)
	require.NoError(t, flags.Set("api-base-url", "https://checks.example.com"))
	require.NoError(t, flags.Set("backend.type", "remote"))

	_, err := Load(flags)
	require.Error(t, err)

	require.NoError(t, flags.Set("backend.remote-urls", "https://downstream.example.com"))
	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://downstream.example.com"}, cfg.Backend.RemoteURLs)
}

// ============================================================================
// Environment Variable Tests
// ============================================================================

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("RH_CHECK_API_BASE_URL", "https://env.example.com")
	t.Setenv("RH_CHECK_BACKEND_TYPE", "mock")
	t.Setenv("RH_CHECK_K8S_TEMPLATE_PATH", "/opt/templates")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	assert.Equal(t, "mock", cfg.Backend.Type)
	assert.Equal(t, "/opt/templates", cfg.K8s.TemplatePath)
}

func TestLoad_SharedEnvironmentNames(t *testing.T) {
	t.Setenv("RH_CHECK_API_BASE_URL", "https://env.example.com")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector:4317")
	t.Setenv("CHECK_MANAGER_COLLECTOR_TLS_SECRET", "collector-cert")
	t.Setenv("OPEN_ID_CONNECT_URL", "https://idp/.well-known/openid-configuration")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "https://collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "collector-cert", cfg.Telemetry.CollectorTLSSecret)
	assert.Equal(t, "https://idp/.well-known/openid-configuration", cfg.Auth.OpenIDConnectURL)
}

// ============================================================================
// YAML File Loading Tests
// ============================================================================

func TestLoad_YAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
log-level: debug
listen-address: ":9090"
api-base-url: https://file.example.com
backend:
  type: aggregation
  remote-urls:
    - https://a.example.com
    - https://b.example.com
auth:
  enabled: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o600))

	flags := newFlags(t)
	require.NoError(t, flags.Set("config", configPath))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.ListenAddress)
	assert.Equal(t, "https://file.example.com", cfg.APIBaseURL)
	assert.Equal(t, "aggregation", cfg.Backend.Type)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Backend.RemoteURLs)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, configPath, cfg.ConfigFileUsed())
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	flags := newFlags(t)
	require.NoError(t, flags.Set("config", "/does/not/exist.yaml"))

	_, err := Load(flags)
	assert.Error(t, err)
}
