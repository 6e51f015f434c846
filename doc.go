/*
Package spahost hosts a pre-built "Single Page Application" (SPA) together with
a tiny JSON API, optionally mounted below a reverse proxy subpath.

A Router decides for each request between three outcomes, in this order:

 1. a registered API route, such as the health check at "/api/health";
 2. a static asset that exists as a regular file in the asset fs.FS;
 3. the SPA's index document, so that the client-side DOM router can take
    over. Unmatched paths below the API prefix get a JSON 404 instead, so
    broken API calls never turn into HTML pages.

The SPAHandler type implements the static-asset-or-index part on its own and
fetches its resources from any fs.FS, so an SPA can even be embedded into a Go
binary. NewHandler wraps a Router with request IDs, access logging, CORS and
compression, and Serve runs the whole thing until its context gets cancelled.

Configuration is an immutable Config value, usually created by ConfigFromEnv
at process start and then handed to the constructors.
*/
package spahost
