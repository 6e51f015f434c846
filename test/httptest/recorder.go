// Copyright 2023 Harald Albrecht.
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

/*
Package httptest wraps the standard library's httptest.ResponseRecorder in order
to fail any test doing superfluous response.WriteHeader calls, and adds a few
helpers for throwing requests at handlers.
*/
package httptest

import (
	"net/http"
	stdhttptest "net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// WrappedResponseRecorder wraps httptest.ResponseRecorder in order to fail
// tests doing superfluous WriteHeader calls.
type WrappedResponseRecorder struct {
	*stdhttptest.ResponseRecorder
	wroteHeader bool
}

// NewRecorder returns a new test response recorder detecting superfluous
// WriteHeader calls.
func NewRecorder() *WrappedResponseRecorder {
	return &WrappedResponseRecorder{
		ResponseRecorder: stdhttptest.NewRecorder(),
	}
}

// WriteHeader implements http.ResponseWriter, failing tests that do superfluous
// WriteHeader calls.
func (w *WrappedResponseRecorder) WriteHeader(code int) {
	GinkgoHelper()
	Expect(w.wroteHeader).To(BeFalse(), "superfluous response.WriteHeader call")
	w.wroteHeader = true
	w.ResponseRecorder.WriteHeader(code)
}

// Write implements http.ResponseWriter, implicitly writing a 200 header the
// first time, so that a later explicit WriteHeader gets flagged, too.
func (w *WrappedResponseRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseRecorder.Write(b)
}

// Serve serves the specified request using the handler and returns the
// recorded response.
func Serve(h http.Handler, r *http.Request) *WrappedResponseRecorder {
	GinkgoHelper()
	w := NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// Request serves a request with the specified method, target and optional
// headers using the handler and returns the recorded response. The target is
// either a path or an absolute URL.
func Request(h http.Handler, method, target string, headers ...http.Header) *WrappedResponseRecorder {
	GinkgoHelper()
	r := stdhttptest.NewRequest(method, target, nil)
	for _, header := range headers {
		for name, values := range header {
			for _, value := range values {
				r.Header.Add(name, value)
			}
		}
	}
	return Serve(h, r)
}

// Get serves a GET request for the target using the handler and returns the
// recorded response.
func Get(h http.Handler, target string, headers ...http.Header) *WrappedResponseRecorder {
	GinkgoHelper()
	return Request(h, http.MethodGet, target, headers...)
}
