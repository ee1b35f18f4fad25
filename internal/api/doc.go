// Package api implements the HTTP handlers of the bestiary service: the
// creature catalog endpoints and the bulk-import task endpoints. Handlers
// translate between HTTP and the domain, map internal errors to status
// codes, and never leak raw error text to clients.
package api
