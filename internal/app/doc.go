// Package app provides the application service layer.
//
// Orchestrates use cases: sign-in upserts, org/building management, bulk bill
// ingestion, upload tracking, dashboard assembly, and the energy price sync.
// Sits between HTTP handlers and domain repositories. Depends on domain
// interfaces, not concrete implementations.
package app
