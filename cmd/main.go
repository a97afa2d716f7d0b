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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/eoepca/check-manager/internal/api"
	"github.com/eoepca/check-manager/internal/backends"
	"github.com/eoepca/check-manager/internal/config"
	"github.com/eoepca/check-manager/internal/hooks"
	"github.com/eoepca/check-manager/internal/hooks/builtin"
	"github.com/eoepca/check-manager/internal/plugins"
	"github.com/eoepca/check-manager/internal/templates"
)

func main() {
	// Set up pflags
	flags := pflag.NewFlagSet("check-manager", pflag.ExitOnError)
	config.BindFlags(flags)

	if err := flags.Parse(os.Args[1:]); err != nil {
		zlog.Error().Err(err).Msg("failed to parse flags")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(flags)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	// Set up zerolog with the configured log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
	zlog.Logger = zl

	// Route client-go's logging through the same sink
	klog.SetLogger(zerologr.New(&zl))

	setupLog := zl.With().Str("component", "setup").Logger()
	if cfg.ConfigFileUsed() != "" {
		setupLog.Info().Str("file", cfg.ConfigFileUsed()).Str("level", cfg.LogLevel).Msg("configuration loaded")
	} else {
		setupLog.Info().Str("level", cfg.LogLevel).Msg("no config file found, using defaults and flags")
	}

	// The template builders resolve image and telemetry settings through the
	// environment; project the config onto it so both sources agree.
	exportEnv := map[string]string{
		"RH_CHECK_K8S_DEFAULT_RUNNER_IMAGE":         cfg.K8s.DefaultRunnerImage,
		"RH_CHECK_K8S_DEFAULT_OIDC_MITMPROXY_IMAGE": cfg.K8s.DefaultOIDCMitmproxyImage,
		"OTEL_EXPORTER_OTLP_ENDPOINT":               cfg.Telemetry.OTLPEndpoint,
		"CHECK_MANAGER_COLLECTOR_TLS_SECRET":        cfg.Telemetry.CollectorTLSSecret,
	}
	for name, value := range exportEnv {
		if value != "" {
			if err := os.Setenv(name, value); err != nil {
				setupLog.Error().Err(err).Str("name", name).Msg("failed to export setting")
				os.Exit(1)
			}
		}
	}

	// Hook registry: builtin sets plus optional plugin sets
	hookRegistry := hooks.NewRegistry()
	builtin.RegisterCluster(hookRegistry)
	if cfg.Auth.Enabled {
		builtin.Register(hookRegistry)
		setupLog.Info().Msg("registered builtin auth hooks")
	}
	if cfg.HookDirPath != "" {
		sets, err := plugins.LoadDir[hooks.Set](cfg.HookDirPath, "HookSet", zl)
		if err != nil {
			setupLog.Error().Err(err).Str("dir", cfg.HookDirPath).Msg("failed to load hook plugins")
			os.Exit(1)
		}
		for name, set := range sets {
			hookRegistry.Register(name, set)
		}
		setupLog.Info().Int("sets", len(sets)).Str("dir", cfg.HookDirPath).Msg("loaded hook plugins")
	}

	// Template registry: shipped templates plus optional plugin templates
	templateRegistry := templates.NewRegistry()
	templates.RegisterBuiltins(templateRegistry)
	if cfg.K8s.TemplatePath != "" {
		loaded, err := plugins.LoadDir[templates.CronjobTemplate](cfg.K8s.TemplatePath, "Template", zl)
		if err != nil {
			setupLog.Error().Err(err).Str("dir", cfg.K8s.TemplatePath).Msg("failed to load template plugins")
			os.Exit(1)
		}
		for _, template := range loaded {
			templateRegistry.Register(template)
		}
		setupLog.Info().Int("templates", len(loaded)).Str("dir", cfg.K8s.TemplatePath).Msg("loaded template plugins")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := buildBackend(ctx, cfg, templateRegistry, hookRegistry)
	if err != nil {
		setupLog.Error().Err(err).Str("type", cfg.Backend.Type).Msg("failed to build backend")
		os.Exit(1)
	}
	backend = backends.NewInstrumentedBackend(cfg.Backend.Type, backend)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			setupLog.Error().Err(err).Msg("failed to close backend")
		}
	}()
	setupLog.Info().Str("type", cfg.Backend.Type).Msg("initialized backend")

	server := api.NewServer(api.ServerOptions{
		Backend:       backend,
		Hooks:         hookRegistry,
		BaseURL:       cfg.APIBaseURL,
		ListenAddress: cfg.ListenAddress,
	})

	if err := server.Start(ctx); err != nil {
		setupLog.Error().Err(err).Msg("problem running API server")
		os.Exit(1)
	}
}

// buildBackend constructs the configured check backend
func buildBackend(ctx context.Context, cfg *config.Config, templateRegistry *templates.Registry, hookRegistry *hooks.Registry) (backends.CheckBackend, error) {
	switch cfg.Backend.Type {
	case "mock":
		return backends.NewMockBackend(hookRegistry, ""), nil
	case "remote":
		return backends.NewRemoteBackend(cfg.Backend.RemoteURLs[0]), nil
	case "aggregation":
		children := make([]backends.CheckBackend, 0, len(cfg.Backend.RemoteURLs))
		for _, url := range cfg.Backend.RemoteURLs {
			children = append(children, backends.NewRemoteBackend(url))
		}
		return backends.NewAggregationBackend(children...), nil
	default:
		return backends.NewK8sBackend(ctx, templateRegistry, hookRegistry)
	}
}
