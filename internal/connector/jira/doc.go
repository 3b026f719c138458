// Package jira implements the Jira side of the bridge: a REST client for
// issue creation and update, create/edit metadata retrieval, user lookup,
// workflow transitions and watcher management, plus the payload types for
// webhook events and changelogs.
//
// The sync pipelines in internal/bridge consume this package through a
// narrow interface; nothing here decides what to sync.
package jira
