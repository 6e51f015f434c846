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
	"encoding/json"
	"net/http"
)

// APIError is the JSON body of API error responses.
type APIError struct {
	Detail string `json:"detail"`
}

// Health is the JSON body of the health check response.
type Health struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	RootPath    string `json:"root_path"`
}

// HealthOnline is the status reported by a running server.
const HealthOnline = "online"

// newHealthHandler returns a handler always reporting HealthOnline together
// with the environment label and root path from the configuration. The body
// is rendered once, as the configuration is immutable.
func newHealthHandler(cfg Config) http.HandlerFunc {
	body, err := json.Marshal(Health{
		Status:      HealthOnline,
		Environment: cfg.Environment,
		RootPath:    cfg.RootPath,
	})
	if err != nil {
		panic(err) // plain strings only, can't fail.
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, body)
	}
}

// apiNotFound reports unmatched API routes; it must never fall back to the
// index document.
func apiNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, APIError{Detail: "API route not found"})
}

// apiMethodNotAllowed reports API routes that exist, but not for the request
// method used.
func apiMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, APIError{Detail: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		InternalServerError(w)
		return
	}
	writeJSONBody(w, status, body)
}

func writeJSONBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
