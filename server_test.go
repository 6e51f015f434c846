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
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

var _ = Describe("serving", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("serves until cancelled", func() {
		ctx := context.Background()
		h := Successful(NewHandler(testConfig("/mnt/app", MatchBoth), embStaticFs, testLogger()))
		ln := Successful(net.Listen("tcp", "127.0.0.1:0"))

		sctx, cancel := context.WithCancel(ctx)
		defer cancel()
		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- Serve(sctx, ln, h, testLogger())
		}()

		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		resp := Successful(client.Get("http://" + ln.Addr().String() + "/mnt/app/api/health"))
		body := Successful(io.ReadAll(resp.Body))
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"status":"online"`))
		Expect(resp.Header.Get(RequestIDHeader)).NotTo(BeEmpty())

		cancel()
		Eventually(done).Within(5 * time.Second).Should(Receive(BeNil()))
		Expect(net.Dial("tcp", ln.Addr().String())).Error().To(HaveOccurred())
	})

	It("reports listen errors", func() {
		ctx := context.Background()
		cfg := DefaultConfig()
		cfg.Host = "127.0.0.1"
		cfg.Port = -1
		Expect(ListenAndServe(ctx, cfg, http.NotFoundHandler(), testLogger())).
			To(MatchError(ContainSubstring("cannot listen")))
	})

	It("listens on the configured address", func() {
		ctx := context.Background()
		// grab a free port first and then hand it over.
		ln := Successful(net.Listen("tcp", "127.0.0.1:0"))
		port := ln.Addr().(*net.TCPAddr).Port
		Expect(ln.Close()).To(Succeed())

		cfg := DefaultConfig()
		cfg.Host = "127.0.0.1"
		cfg.Port = port
		sctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- ListenAndServe(sctx, cfg, http.NotFoundHandler(), testLogger())
		}()
		Eventually(func() error {
			conn, err := net.Dial("tcp", cfg.Addr())
			if err == nil {
				conn.Close()
			}
			return err
		}).Within(2 * time.Second).ProbeEvery(50 * time.Millisecond).Should(Succeed())
		cancel()
		Eventually(done).Within(5 * time.Second).Should(Receive(BeNil()))
	})

})
