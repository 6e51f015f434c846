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

package spahost

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the optional dotenv file ConfigFromEnv loads before
// looking at the process environment.
const DefaultEnvFile = ".env"

// APIPrefixMatch controls which request path forms are considered to be API
// calls. Depending on the reverse proxy in front of us, the mount prefix might
// or might not have been stripped from the request path by the time the
// request arrives.
type APIPrefixMatch int

const (
	// MatchBoth treats both "{root}{api}/..." and "{api}/..." as API paths.
	MatchBoth APIPrefixMatch = iota
	// MatchPrefixed only treats "{root}{api}/..." as API paths.
	MatchPrefixed
	// MatchUnprefixed only treats "{api}/..." as API paths.
	MatchUnprefixed
)

var apiPrefixMatchNames = map[APIPrefixMatch]string{
	MatchBoth:       "both",
	MatchPrefixed:   "prefixed",
	MatchUnprefixed: "unprefixed",
}

// String returns the textual name of the match mode.
func (m APIPrefixMatch) String() string {
	if name, ok := apiPrefixMatchNames[m]; ok {
		return name
	}
	return "APIPrefixMatch(" + strconv.Itoa(int(m)) + ")"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *APIPrefixMatch) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for mode, name := range apiPrefixMatchNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("invalid API prefix match mode %q", string(text))
}

// Config is the immutable deployment configuration, read once at process start
// and then passed by value into the router and server constructors.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8080"`
	// RootPath is the reverse proxy mount prefix; it may be empty.
	RootPath string `env:"ROOT_PATH"`
	// Environment is the label reported by the health check.
	Environment string         `env:"ENVIRONMENT" envDefault:"production"`
	AssetDir    string         `env:"ASSET_DIR" envDefault:"."`
	Index       string         `env:"INDEX_FILE" envDefault:"index.html"`
	APIPrefix   string         `env:"API_PREFIX" envDefault:"/api"`
	APIMatch    APIPrefixMatch `env:"API_PREFIX_MATCH" envDefault:"both"`
	CORSOrigins []string       `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel    slog.Level     `env:"LOG_LEVEL" envDefault:"info"`
}

// DefaultConfig returns the configuration used when no environment variables
// are set at all.
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		Environment: "production",
		AssetDir:    ".",
		Index:       "index.html",
		APIPrefix:   "/api",
		APIMatch:    MatchBoth,
		CORSOrigins: []string{"*"},
		LogLevel:    slog.LevelInfo,
	}
}

// ConfigFromEnv loads the optional dotenv file (DefaultEnvFile if envfile is
// empty) without overriding already set variables, and then returns the
// configuration derived from the process environment.
func ConfigFromEnv(envfile string) (Config, error) {
	return LoadConfig(envfile, nil)
}

// LoadConfig works like ConfigFromEnv, but first replaces the environment
// variables in overrides, such as from command line flags. Overridden
// variables are never parsed from the environment, so an invalid environment
// value doesn't matter when it gets overridden anyway. The configuration gets
// validated only once, after applying the overrides.
func LoadConfig(envfile string, overrides map[string]string) (Config, error) {
	if envfile == "" {
		envfile = DefaultEnvFile
	}
	if err := godotenv.Load(envfile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot load env file %q: %w", envfile, err)
	}
	environ := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	for k, v := range overrides {
		environ[k] = v
	}
	return ConfigFromEnvironment(environ)
}

// ConfigFromEnvironment returns the configuration derived from the specified
// environment variables. When PORT isn't set, DATABRICKS_APP_PORT is used
// instead, as set by the Databricks Apps hosting platform.
func ConfigFromEnvironment(environ map[string]string) (Config, error) {
	if _, ok := environ["PORT"]; !ok {
		if port, ok := environ["DATABRICKS_APP_PORT"]; ok {
			m := make(map[string]string, len(environ)+1)
			for k, v := range environ {
				m[k] = v
			}
			m["PORT"] = port
			environ = m
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("invalid environment configuration: %w", err)
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalized returns a copy of the configuration with the root path and API
// prefix cleaned into either "" or "/foo/bar" form, without trailing slashes.
func (c Config) Normalized() Config {
	c.RootPath = cleanPrefix(c.RootPath)
	c.APIPrefix = cleanPrefix(c.APIPrefix)
	c.Index = strings.TrimPrefix(path.Clean("/"+c.Index), "/")
	if c.AssetDir == "" {
		c.AssetDir = "."
	}
	if len(c.CORSOrigins) != 0 {
		origins := make([]string, 0, len(c.CORSOrigins))
		for _, origin := range c.CORSOrigins {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		c.CORSOrigins = origins
	}
	return c
}

// Validate returns an error if the (normalized) configuration cannot be
// served.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, ok := apiPrefixMatchNames[c.APIMatch]; !ok {
		return fmt.Errorf("invalid API prefix match mode %s", c.APIMatch)
	}
	if c.APIPrefix == "" {
		return errors.New("API prefix must not be empty or \"/\"")
	}
	if c.Index == "" {
		return errors.New("index file name must not be empty")
	}
	return nil
}

// Addr returns the "host:port" address to listen on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// cleanPrefix cleans a URL path prefix into "" or "/foo/bar" form.
func cleanPrefix(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return ""
	}
	prefix = path.Clean("/" + prefix)
	if prefix == "/" {
		return ""
	}
	return prefix
}
