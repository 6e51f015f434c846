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
	"path"
	"strings"
)

// NormalizePath returns the request path with at most one literal occurrence
// of rootPrefix removed from its beginning, and with the leading "/" removed.
// An empty rootPrefix leaves the request path as it is, except for the leading
// "/". The result thus is in the unrooted form fs.FS paths use.
//
// NormalizePath doesn't clean the path; see cleanRequestPath for this.
func NormalizePath(requestPath, rootPrefix string) string {
	if rootPrefix != "" {
		requestPath = strings.TrimPrefix(requestPath, rootPrefix)
	}
	return strings.TrimPrefix(requestPath, "/")
}

// cleanRequestPath returns the normalized and then cleaned, rooted form of the
// specified request path. Slapping "/" in front before cleaning ensures that
// path.Clean never uses the current working dir and that ".." elements cannot
// climb above the root.
func cleanRequestPath(requestPath, rootPrefix string) string {
	return path.Clean("/" + NormalizePath(requestPath, rootPrefix))
}

// hasPathPrefix returns true if p equals prefix or continues with a "/" after
// prefix, so that "/apis" doesn't count as being below "/api".
func hasPathPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

// isAPIPath reports whether the specified request path (as received, that is,
// not normalized) is an API path according to the match mode. The API prefix
// is always compared against the normalized path; the mode only decides
// whether the request must or must not have carried the root prefix. rootPrefix
// and apiPrefix must be in Config.Normalized form.
func isAPIPath(requestPath, rootPrefix, apiPrefix string, mode APIPrefixMatch) bool {
	if !hasPathPrefix(cleanRequestPath(requestPath, rootPrefix), apiPrefix) {
		return false
	}
	if rootPrefix == "" {
		return true
	}
	// same literal test NormalizePath applies when stripping.
	carriesRoot := strings.HasPrefix(requestPath, rootPrefix)
	switch mode {
	case MatchPrefixed:
		return carriesRoot
	case MatchUnprefixed:
		return !carriesRoot
	default:
		return true
	}
}
