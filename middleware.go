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
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

// RequestIDHeader carries the request ID, both in requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the request ID stored in the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewHandler returns the complete HTTP handler serving the SPA from fsys with
// the specified configuration: a Router wrapped into (from the outside in)
// panic recovery, request IDs, access logging, CORS and compression. A nil
// logger means slog.Default.
func NewHandler(cfg Config, fsys fs.FS, log *slog.Logger, opts ...SPAHandlerOption) (http.Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	rt, err := NewRouter(cfg, fsys, append([]SPAHandlerOption{WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, err
	}
	cfg = rt.Config()

	var h http.Handler = rt
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLogFormatter(log))
	h = requestIDHandler(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: log}),
	)(h)
	return h, nil
}

// requestIDHandler passes on a request ID found in the request or otherwise
// assigns a new UUIDv7 one; the ID is echoed in the response and stored in the
// request context.
func requestIDHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// accessLogFormatter returns a handlers.LogFormatter that ignores the writer
// it is given and emits a structured log record per request instead.
func accessLogFormatter(log *slog.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		log.LogAttrs(p.Request.Context(), slog.LevelInfo, "request",
			slog.String("method", p.Request.Method),
			slog.String("path", p.URL.Path),
			slog.Int("status", p.StatusCode),
			slog.Int("size", p.Size),
			slog.Duration("duration", time.Since(p.TimeStamp)),
			slog.String("remote", p.Request.RemoteAddr),
			slog.String("request_id", RequestID(p.Request.Context())),
		)
	}
}

// recoveryLogger adapts a slog.Logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	log *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("recovered from panic", slog.String("panic", fmt.Sprint(v...)))
}
