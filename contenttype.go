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
	"mime"
	"path"
	"strings"
)

// DefaultContentTypes maps file extensions to the content types served for
// them, overriding the platform's MIME tables. The SPA's own sources such as
// "index.tsx" get loaded by browsers as ES modules and thus must be served as
// JavaScript; module scripts are rejected otherwise.
var DefaultContentTypes = map[string]string{
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".jsx":  "application/javascript",
	".ts":   "application/javascript",
	".tsx":  "application/javascript",
	".css":  "text/css; charset=utf-8",
	".json": "application/json",
	".map":  "application/json",
	".svg":  "image/svg+xml",
	".wasm": "application/wasm",
}

// contentTypes is a per-handler extension-to-content-type table, so that
// handlers never need to touch the process-wide mime registry.
type contentTypes map[string]string

func newContentTypes(overrides ...map[string]string) contentTypes {
	ct := contentTypes{}
	ct.add(DefaultContentTypes)
	for _, o := range overrides {
		ct.add(o)
	}
	return ct
}

// add adds the specified types, overriding existing ones for the same
// extensions.
func (ct contentTypes) add(types map[string]string) {
	for ext, typ := range types {
		ct[normalizeExt(ext)] = typ
	}
}

// lookup returns the content type for the specified file name, or "" if
// there is neither an override nor a platform MIME type. An empty result
// leaves content sniffing to net/http.
func (ct contentTypes) lookup(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if typ, ok := ct[ext]; ok {
		return typ
	}
	return mime.TypeByExtension(ext)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
