// Package server implements the HTTP server using Echo framework.
//
// Routes: auth (OAuth), pages (dashboard/orgs/buildings/uploads), API
// (ingest/prices/uploads), benchmarking proxy (/api/espm), health probes.
// Handlers split by surface: handlers_auth.go, handlers_pages.go,
// handlers_api.go, handlers_espm.go, handlers_health.go.
package server
