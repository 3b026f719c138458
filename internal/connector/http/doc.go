// Package http provides the shared HTTP client used by the Shotgun and
// Jira connectors.
//
// Structure:
//
//	client.go - rate-limited, retry-capable JSON client
//	auth.go   - authentication strategies (Basic, Bearer, Atlassian)
package http
