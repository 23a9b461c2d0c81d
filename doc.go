/*
Package main provides the entry point for the Escape Race API server.

Escape Race is the backend for a browser-based, multi-stage escape room
game. Participants progress through numbered stages by solving puzzles;
the server enforces progression order, records arrival rankings per
stage, and resolves time-windowed group-choice voting rounds where the
minority side advances.

# Starting the Server

The server runs against sqlite by default:

	ADMIN_PASSWORD=secret go run main.go

Or against PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... ADMIN_PASSWORD=secret go run main.go

# Configuration

Required settings:

  - ADMIN_PASSWORD (--admin-password): password for the admin endpoints

Optional settings:

  - PORT (-p): server port (default: 8090)
  - DATABASE_URL (-d): DSN; defaults to a local sqlite file
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CATALOG_PATH (--catalog): JSON stage catalog; built-in set when unset
  - BASE_URL (--base-url): public URL encoded into the admin join QR

A .env file in the working directory is loaded if present.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (progression, voting, players, admin)
  - router: route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin gate, JSON helpers
  - models: request/response types
  - catalog: static stage definitions and per-type puzzle config
  - auth: session ID issuance and admin password validation
  - db: driver selection and schema creation
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
