// Package bridge implements the sync core: acceptance filters, the
// outbound (Shotgun to Jira) and inbound (Jira to Shotgun) change
// pipelines, the value translators, issue creation and the status and
// watcher helpers.
//
// Processing is single-threaded and per-event. Updates are computed from
// current remote state at processing time, so re-delivering an event is
// safe; the two remote systems are the only source of truth.
package bridge
