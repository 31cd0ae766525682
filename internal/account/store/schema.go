package store

import _ "embed"

// Schema is the DDL for the engine's tables. Applied by migrations in
// deployment and by the integration test harness.
//
//go:embed schema.sql
var Schema string
