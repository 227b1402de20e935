// Package server hosts the Fiber HTTP service used by `any-fetch -serve`.
// It exposes a single Fetcher over HTTP: GET /fetch runs one unit of work
// against the shared cache, while the /-/ prefix carries cache diagnostics
// registered by the routes subpackage. Dependencies are passed in explicitly
// through AppOptions; the package owns no global state.
package server
