// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// spahost serves a pre-built single page application from a directory,
// together with a JSON health check, optionally below a reverse proxy mount
// prefix.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/spahost"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spahost [flags]",
		Short: "spahost serves a single page application and its health check API",
		Long: `spahost serves a pre-built single page application (SPA) from a directory.

Existing files get served as they are, API paths get their JSON responses, and
everything else gets the SPA's index document so that the client-side router
can take over. Flags override environment variables, which in turn override
the optional .env file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
	fl := cmd.Flags()
	fl.String("env-file", spahost.DefaultEnvFile, "optional dotenv `file` to load first")
	fl.String("host", "", "bind `address` (env HOST, default 0.0.0.0)")
	fl.Int("port", 0, "`port` to listen on (env PORT or DATABRICKS_APP_PORT, default 8080)")
	fl.String("root-path", "", "reverse proxy mount `prefix` (env ROOT_PATH)")
	fl.String("env", "", "environment `label` reported by the health check (env ENVIRONMENT)")
	fl.String("dir", "", "`directory` with the built SPA (env ASSET_DIR, default .)")
	fl.String("index", "", "index document `file` (env INDEX_FILE, default index.html)")
	fl.String("api-match", "", "API prefix `mode`: both, prefixed, or unprefixed (env API_PREFIX_MATCH)")
	fl.String("log-level", "", "log `level`: debug, info, warn, error (env LOG_LEVEL)")
	fl.Bool("hide-dotfiles", true, "never serve files or directories starting with a dot")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	var opts []spahost.SPAHandlerOption
	if hide, _ := cmd.Flags().GetBool("hide-dotfiles"); hide {
		opts = append(opts, spahost.WithoutDotfiles())
	}
	if _, err := os.Stat(cfg.AssetDir); err != nil {
		return fmt.Errorf("invalid asset directory: %w", err)
	}
	h, err := spahost.NewHandler(cfg, os.DirFS(cfg.AssetDir), log, opts...)
	if err != nil {
		return err
	}

	banner(cmd, cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return spahost.ListenAndServe(ctx, cfg, h, log)
}

// flagEnvVars maps flags to the environment variables they override.
var flagEnvVars = map[string]string{
	"host":      "HOST",
	"port":      "PORT",
	"root-path": "ROOT_PATH",
	"env":       "ENVIRONMENT",
	"dir":       "ASSET_DIR",
	"index":     "INDEX_FILE",
	"api-match": "API_PREFIX_MATCH",
	"log-level": "LOG_LEVEL",
}

// configFromFlags returns the configuration from the environment (and env
// file), with explicitly set flags taking precedence. The flags replace their
// environment variables before parsing, so the configuration gets parsed and
// validated exactly once.
func configFromFlags(fl *pflag.FlagSet) (spahost.Config, error) {
	envfile, _ := fl.GetString("env-file")
	overrides := map[string]string{}
	fl.Visit(func(f *pflag.Flag) {
		if name, ok := flagEnvVars[f.Name]; ok {
			overrides[name] = f.Value.String()
		}
	})
	return spahost.LoadConfig(envfile, overrides)
}

func banner(cmd *cobra.Command, cfg spahost.Config) {
	w := cmd.ErrOrStderr()
	title := color.New(color.FgCyan, color.Bold)
	faint := color.New(color.Faint)
	_, _ = title.Fprint(w, "spahost")
	_, _ = faint.Fprintf(w, " serving %s (%s)\n", cfg.AssetDir, cfg.Environment)
	url := "http://" + cfg.Addr() + cfg.RootPath + "/"
	_, _ = fmt.Fprintf(w, "⇨ %s, health check at %s%s\n",
		color.GreenString(url),
		strings.TrimSuffix(url, "/"), cfg.APIPrefix+spahost.HealthPath)
}
