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
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/thediveo/spahost/test/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("middleware stack", func() {

	var logbuf *bytes.Buffer
	var log *slog.Logger

	BeforeEach(func() {
		logbuf = &bytes.Buffer{}
		log = slog.New(slog.NewJSONHandler(io.MultiWriter(logbuf, GinkgoWriter), nil))
	})

	newHandler := func(cfg Config, opts ...SPAHandlerOption) http.Handler {
		GinkgoHelper()
		return Successful(NewHandler(cfg, embStaticFs, log, opts...))
	}

	It("rejects invalid configurations", func() {
		cfg := DefaultConfig()
		cfg.Index = ""
		Expect(NewHandler(cfg, embStaticFs, nil)).Error().To(HaveOccurred())
	})

	It("assigns request IDs", func() {
		h := newHandler(testConfig("", MatchBoth))
		w := httptest.Get(h, "/")
		Expect(w.Code).To(Equal(http.StatusOK))
		id := Successful(uuid.Parse(w.Header().Get(RequestIDHeader)))
		Expect(id.Version()).To(Equal(uuid.Version(7)))

		other := httptest.Get(h, "/").Header().Get(RequestIDHeader)
		Expect(other).NotTo(Equal(id.String()))
	})

	It("passes on existing request IDs", func() {
		h := newHandler(testConfig("", MatchBoth))
		w := httptest.Get(h, "/api/health", http.Header{RequestIDHeader: []string{"canary-42"}})
		Expect(w.Header().Get(RequestIDHeader)).To(Equal("canary-42"))
		Expect(logbuf.String()).To(ContainSubstring(`"request_id":"canary-42"`))
	})

	It("logs requests", func() {
		h := newHandler(testConfig("/mnt/app", MatchBoth))
		w := httptest.Get(h, "/mnt/app/api/nope")
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(logbuf.String()).To(And(
			ContainSubstring(`"msg":"request"`),
			ContainSubstring(`"method":"GET"`),
			ContainSubstring(`"path":"/mnt/app/api/nope"`),
			ContainSubstring(`"status":404`),
		))
	})

	It("adds CORS headers for allowed origins", func() {
		h := newHandler(testConfig("", MatchBoth))
		w := httptest.Get(h, "/api/health", http.Header{"Origin": []string{"https://example.org"}})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})

	It("answers CORS preflight requests", func() {
		h := newHandler(testConfig("", MatchBoth))
		w := httptest.Request(h, http.MethodOptions, "/api/health", http.Header{
			"Origin":                        []string{"https://example.org"},
			"Access-Control-Request-Method": []string{"GET"},
		})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(w.Body.String()).To(BeEmpty())
	})

	It("doesn't add CORS headers for other origins", func() {
		cfg := testConfig("", MatchBoth)
		cfg.CORSOrigins = []string{"https://good.example"}
		h := newHandler(cfg)

		w := httptest.Get(h, "/api/health", http.Header{"Origin": []string{"https://evil.example"}})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())

		w = httptest.Get(h, "/api/health", http.Header{"Origin": []string{"https://good.example"}})
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://good.example"))
	})

	It("compresses when asked to", func() {
		h := newHandler(testConfig("", MatchBoth))
		w := httptest.Get(h, "/assets/app.js", http.Header{"Accept-Encoding": []string{"gzip"}})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Encoding")).To(Equal("gzip"))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/javascript"))
		zr := Successful(gzip.NewReader(w.Body))
		Expect(string(Successful(io.ReadAll(zr)))).To(ContainSubstring("CANARY APP"))
	})

	It("recovers from panics", func() {
		h := newHandler(testConfig("", MatchBoth),
			WithIndexRewriter(func(*http.Request, string) string { panic("CANARY PANIC") }))
		w := httptest.Get(h, "/dashboard")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(logbuf.String()).To(And(
			ContainSubstring("recovered from panic"),
			ContainSubstring("CANARY PANIC")))

		Expect(httptest.Get(h, "/api/health").Code).To(Equal(http.StatusOK))
	})

})
