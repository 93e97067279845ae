// Package app composes the records service.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/record/      # Record and CreateInput (pure data)
//	├── validation/         # payload decoding and rule checks
//	├── storage/            # RecordStore interface and sentinel errors
//	│   ├── memory/         # in-process store (default)
//	│   ├── postgres/       # PostgreSQL store (sqlx)
//	│   └── redis/          # Redis store
//	├── services/records/   # domain service and count sampler
//	├── httpapi/            # routing table, handlers, audit log
//	├── metrics/            # Prometheus collectors
//	├── runtime/            # config driven assembly and HTTP server
//	└── system/             # lifecycle manager
//
// # Request Flow
//
//	HTTP request
//	      │
//	      ▼
//	middleware (recover, tracing, cors, rate limit, metrics)
//	      │
//	      ▼
//	httpapi route ──► validation.DecodeCreate ──► records.Service ──► storage.RecordStore
//
// The Application owns the records service and its sampler. Stores are
// injected through Stores so tests and the runtime can choose a backend.
package app
