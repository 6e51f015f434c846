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
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"syscall"
)

// ForwardedPrefixHeader, if present, specifies the prefix that need to be
// preprended to the request's URI path in order to learn the original path
// when hitting the path rewriting proxy.
const ForwardedPrefixHeader = "X-Forwarded-Prefix"

// ForwardedUriHeader, if present, specifies the original URI (or sometimes only
// the original URI path) of a request when hitting the first path rewriting
// proxy.
const ForwardedUriHeader = "X-Forwarded-Uri"

// baseRe matches the base element in index.html in order to allow us to
// dynamically rewrite the base the SPA is served from. Go's templating is of no
// use here, as the index.html must stay usable during frontend development
// without any Go server in sight.
//
// Please note: "*?" instead of "*" keeps the expression from gobbling up
// everything until the last(!) empty element.
var baseRe = regexp.MustCompile(`(<base href=").*?("\s*/?>)`)

// SPAHandler implements an http.Handler that serves the Index file on (almost)
// all request paths, except for regular files found in its fs. The Index file
// contents served are automatically adjusted to the correct request base path,
// based on either the configured base path or forwarding proxy headers.
type SPAHandler struct {
	fs                fs.FS         // the FS to serve static resources from.
	index             string        // (unrooted) path and name of the index/SPA file inside fs.
	staticfileHandler http.Handler  // FS adapted to http's file serving handler needs.
	indexRewriter     IndexRewriter // optional user function to rewrite the index/SPA file as necessary.
	basePath          string        // fixed base path, "" if to be derived from proxy headers.
	contentTypes      contentTypes
	hideDotfiles      bool
	log               *slog.Logger
}

// NewSPAHandler returns a new HTTP handler serving static resources from the
// specified fs. It serves the index resource instead whenever no directly
// matching regular file can be found on the specified fs. The index resource
// should be specified as an unrooted, slash-separated path+name; NewSPAHandler
// sanitizes it anyway.
//
// In order to serve the static resources from a directory on the OS file
// system, use os.DirFS:
//
//	h := NewSPAHandler(os.DirFS("/opt/data/myspa"), "index.html")
func NewSPAHandler(fs fs.FS, index string, opts ...SPAHandlerOption) *SPAHandler {
	h := &SPAHandler{
		fs:                fs,
		staticfileHandler: http.FileServer(http.FS(fs)),
		index:             path.Clean("/" + index)[1:],
		contentTypes:      newContentTypes(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

// SPAHandlerOption sets optional properties at the time of creating an
// SPAHandler.
type SPAHandlerOption func(*SPAHandler)

// IndexRewriter rewrites (parts) of an index/SPA file contents to be delivered
// to a requesting client, after the base element has been updated. It can be
// optionally activated using the WithIndexRewriter option when creating a new
// SPAHandler.
type IndexRewriter func(r *http.Request, index string) string

// WithIndexRewriter sets the specified IndexRewriter that gets called before
// delivering the index/SPA file contents to requesting clients, allowing for
// application-specific changes.
func WithIndexRewriter(rewriter IndexRewriter) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.indexRewriter = rewriter
	}
}

// WithBasePath fixes the base path the index document's base element gets
// rewritten to, instead of deriving it from proxy headers. An empty or "/"
// base switches back to header-based detection.
func WithBasePath(base string) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.basePath = cleanPrefix(base)
	}
}

// WithContentTypes adds to or overrides the DefaultContentTypes served for
// specific file extensions.
func WithContentTypes(types map[string]string) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.contentTypes.add(types)
	}
}

// WithoutDotfiles never serves files or directories whose names start with a
// ".", such as ".env"; such paths get the index document instead.
func WithoutDotfiles() SPAHandlerOption {
	return func(h *SPAHandler) {
		h.hideDotfiles = true
	}
}

// WithLogger sets the logger for reporting broken deployments; it defaults to
// slog.Default.
func WithLogger(log *slog.Logger) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.log = log
	}
}

// ServeHTTP either serves a static resource when available inside the
// SPAHandler's fs or otherwise the specified Index asset. This behavior is
// required for SPAs with client-side DOM routers, as otherwise bookmarking
// (router) links or reloading an SPA with the current route other than "/"
// would fail.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get the absolute and also cleaned path to the requested resource in order
	// to prevent parent directory traversal outside the static assets
	// directory.
	r.URL.Path = path.Clean("/" + r.URL.Path)
	if h.serveStaticAsset(w, r) {
		return
	}
	h.serveRewrittenIndex(w, r)
}

// serveRewrittenIndex serves the index file, rewriting its HTML base element if
// found to refer the correct base path of the SPA. The index file is an
// essential part of the deployment, so any failure to read it is a 500, even
// when it is missing.
func (h *SPAHandler) serveRewrittenIndex(w http.ResponseWriter, r *http.Request) {
	var err error
	defer func() {
		if err != nil {
			h.log.Error("cannot serve SPA index document",
				slog.String("index", h.index), slog.String("error", err.Error()))
			InternalServerError(w)
		}
	}()
	// Sanitize the base path so it cannot interfere with our regexp replacement
	// operations where we need to use "$1" and "$2" back references.
	base := strings.ReplaceAll(h.basename(r), "$", "")
	f, err := h.fs.Open(h.index)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	fileInfo, err := f.Stat()
	if err != nil {
		return
	}
	indexhtmlcontents, err := io.ReadAll(f)
	if err != nil {
		return
	}
	finalIndexhtml := baseRe.ReplaceAllString(string(indexhtmlcontents), "${1}"+base+"${2}")
	if h.indexRewriter != nil {
		finalIndexhtml = h.indexRewriter(r, finalIndexhtml)
	}
	// The index is never to be taken from a cache without asking, as it
	// refers to the (hashed) names of the current asset generation.
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", fileInfo.ModTime(), strings.NewReader(finalIndexhtml))
}

// serveStaticAsset tries to serve a static asset specified in uripath from the
// SPAHandler's fs and returning true if successful. If no such static asset
// exists, nothing is served and false is returned instead.
//
// IMPORTANT: the passed r.URL.Path must have already been sanitized.
func (h *SPAHandler) serveStaticAsset(w http.ResponseWriter, r *http.Request) bool {
	path := r.URL.Path[1:] // ...fs.FS uses unrooted paths.
	if path == "" || path == h.index {
		// hitting root is always a case for index.html; and the index itself
		// must get its base rewritten, as well as never be redirected to "./"
		// by http.FileServer.
		return false
	}
	if h.hideDotfiles && hasDotSegment(path) {
		return false
	}
	// fs.Stat deals with fs.FS implementations that don't support fs.StatFS, so
	// we can rely on it to give us stat information whatever measures that
	// takes.
	info, err := fs.Stat(h.fs, path)
	if err == nil && info.Mode().IsRegular() {
		// http.FileServer only consults the mime tables when there's no
		// Content-Type set yet.
		if typ := h.contentTypes.lookup(path); typ != "" {
			w.Header().Set("Content-Type", typ)
		}
		h.staticfileHandler.ServeHTTP(w, r)
		return true
	}
	// If we got an error and it isn't a missing static asset, then normalize
	// (or rather, sanitize) the error and send that back to the client.
	if err != nil && !isNotExist(err) {
		NormalizedHttpError(w, err)
		return true
	}
	return false
}

// isNotExist returns true for errors signalling that a static asset doesn't
// exist. A path running through a regular file as if it were a directory, such
// as "index.html/foo", doesn't exist either.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// hasDotSegment returns true if any element of the unrooted path starts with
// a ".".
func hasDotSegment(p string) bool {
	for _, elem := range strings.Split(p, "/") {
		if strings.HasPrefix(elem, ".") {
			return true
		}
	}
	return false
}

// originalReqPath returns the (hopefully) original path when hitting the first
// proxy in a chain, based on what has been passed down to us. If no suitable
// forwarding information is present, the original -- and already sanitized --
// request URL path.
func (h *SPAHandler) originalReqPath(r *http.Request) string {
	// Was the request path rewritten? Then the original request path was the
	// forwarded prefix, followed by the remaining part we now see in the
	// request.
	if fwprefix := r.Header.Get(ForwardedPrefixHeader); fwprefix != "" {
		fwprefix = path.Clean("/" + fwprefix)
		return path.Join(fwprefix, r.URL.Path)
	}
	// Was the original HTTP request URL passed upon us? Some proxies only pass
	// the request path, but not the full original URI.
	if fwurl := r.Header.Get(ForwardedUriHeader); fwurl != "" {
		if strings.HasPrefix(fwurl, "/") {
			return path.Clean(fwurl)
		}
		if u, err := url.Parse(fwurl); err == nil {
			return path.Clean("/" + u.Path)
		}
	}
	return r.URL.Path
}

// basename returns the URI request path base. A fixed base path takes
// precedence; otherwise the base gets derived from proxy headers when
// available. Rewriting forwarding proxies need to preserve the original
// client-side request URI path for this to work; if deriving the base name is
// impossible, the base is taken to be "/" from the clients' perspective.
func (h *SPAHandler) basename(r *http.Request) string {
	if h.basePath != "" {
		return h.basePath + "/"
	}
	reqPath := r.URL.Path
	originalReqPath := h.originalReqPath(r)
	var base string
	if strings.HasSuffix(reqPath, "/") && !strings.HasSuffix(originalReqPath, "/") {
		// take care of the situation where the reverse proxy redirects from
		// /foo to /foo/ and then rewrites the path to /.
		originalReqPath += "/"
	}
	// If the request path we see is a proper suffix of the original request
	// path, take only the common base part (~prefix).
	if strings.HasSuffix(originalReqPath, reqPath) {
		base = originalReqPath[:len(originalReqPath)-len(reqPath)]
	}
	// Ensure that the base path always ends with a "/", as otherwise browsers
	// clip off the final element that once was a proper directory name.
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
