// Package shotgun implements the Shotgun side of the bridge: an api3
// client for entity reads and updates, field schema read/update with a
// per-entity-type cache, entity consolidation (normalizing the per-type
// name field), name-based entity matching and page URL construction.
package shotgun
