// Package core defines the domain model shared by the sync pipelines:
// Shotgun field schemas, entity references, event change payloads and the
// error kinds that drive per-field error handling.
//
// Everything in this package is ephemeral. Values are scoped to the
// processing of a single event or creation request and are never persisted
// by the bridge itself.
package core
