// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and tern for migrations. Repositories
// implement the domain interfaces (UserRepository, BuildingRepository,
// MeterRepository, BillRepository, ...) with hand-written SQL and map
// pgx.ErrNoRows to the domain sentinel errors.
package database
