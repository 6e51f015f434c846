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
	"context"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// HealthPath is the path of the health check below the API prefix.
const HealthPath = "/health"

// Router routes requests in a fixed order of precedence: registered API
// routes first, then existing static assets, and finally the SPA index
// document as the catch-all. Unmatched API paths never reach the catch-all and
// get a JSON 404 instead.
//
// All routing decisions are made on the normalized request path, that is, with
// the configured root path stripped. This keeps routing correct regardless of
// whether the reverse proxy in front of us strips its mount prefix or passes
// it on.
type Router struct {
	cfg Config
	mux *mux.Router
	spa *SPAHandler
}

type requestPathKey struct{}

// NewRouter returns a new Router for the specified configuration, serving the
// SPA and its static assets from fsys. The configuration gets normalized
// first; an invalid configuration is reported as an error. The SPAHandler
// options are passed on, after defaulting the base path to the configured
// root path.
func NewRouter(cfg Config, fsys fs.FS, opts ...SPAHandlerOption) (*Router, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Router{
		cfg: cfg,
		spa: NewSPAHandler(fsys, cfg.Index,
			append([]SPAHandlerOption{WithBasePath(cfg.RootPath)}, opts...)...),
	}

	m := mux.NewRouter()
	// We clean paths ourselves, without redirecting, after stripping the
	// root path.
	m.SkipClean(true)

	api := m.MatcherFunc(rt.matchAPI).Subrouter()
	api.NotFoundHandler = http.HandlerFunc(apiNotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(apiMethodNotAllowed)
	api.Handle(cfg.APIPrefix+HealthPath, newHealthHandler(cfg)).
		Methods(http.MethodGet, http.MethodHead)

	m.PathPrefix("/").Handler(rt.spa)
	rt.mux = m
	return rt, nil
}

// Config returns the normalized configuration used by this router.
func (rt *Router) Config() Config { return rt.cfg }

// ServeHTTP strips the root path from the request path and then dispatches the
// request. The request path as received is kept for API path matching.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	original := r.URL.Path
	u := new(url.URL)
	*u = *r.URL
	u.Path = cleanRequestPath(original, rt.cfg.RootPath)
	u.RawPath = ""
	r2 := r.WithContext(context.WithValue(r.Context(), requestPathKey{}, original))
	r2.URL = u
	rt.mux.ServeHTTP(w, r2)
}

// IsAPIPath reports whether the request path, as received, is below the API
// prefix, taking the configured APIPrefixMatch mode into account.
func (rt *Router) IsAPIPath(requestPath string) bool {
	return isAPIPath(requestPath, rt.cfg.RootPath, rt.cfg.APIPrefix, rt.cfg.APIMatch)
}

func (rt *Router) matchAPI(r *http.Request, _ *mux.RouteMatch) bool {
	requestPath, ok := r.Context().Value(requestPathKey{}).(string)
	if !ok {
		requestPath = r.URL.Path
	}
	return rt.IsAPIPath(requestPath)
}
