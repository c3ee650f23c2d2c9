// Package app composes the video portal backend.
//
// # Architecture Role
//
// The app package wires the catalog client, the Supabase-backed stores and
// the portal services into one Application and runs their background work
// (cache cleanup, trending warm-up, upload simulation) through a
// system.Manager. It holds no business rules of its own.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Row models shared by services and stores
//	│   ├── profile/        # profiles table
//	│   ├── subscription/   # plans and the subscriptions table
//	│   └── engagement/     # video_history and video_likes tables
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # ProfileStore, SubscriptionStore, HistoryStore, LikeStore
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   ├── supabase/       # PostgREST implementation (default)
//	│   └── postgres/       # Direct SQL implementation
//	├── services/           # catalog, session, entitlement, engagement,
//	│                       # analytics, shorts, upload
//	├── httpapi/            # HTTP routes over the services
//	├── runtime/            # Config loading, store selection, HTTP server
//	├── system/             # Service lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Request Flow
//
//	browser ──► httpapi ──► service ──► catalog API / Supabase
//
// Every request is a single round trip to a remote service. The only state
// held in process is the catalog cache and the simulated upload jobs.
//
// # Adding a Resource
//
//  1. Add the row model under internal/app/domain/
//  2. Extend storage/interfaces.go and the memory, supabase and postgres stores
//  3. Add a migration under internal/platform/migrations/sql/
//  4. Create the service under internal/app/services/ and wire it in New
//  5. Register the routes in httpapi/handler.go
package app
