package bridge

import (
	"sort"
	"strings"
)

// =============================================================================
// FIELD MAPPING
// =============================================================================

// FieldMapping routes field names between the two systems. The two
// directions are independent maps: a field can sync one way only, and two
// Jira fields may fold into the same Shotgun field.
type FieldMapping struct {
	toJira    map[string]string
	toShotgun map[string]string
}

// NewFieldMapping builds a mapping from the two directional tables.
// toJira maps Shotgun field names to Jira field ids; toShotgun maps Jira
// field ids to Shotgun field names.
func NewFieldMapping(toJira, toShotgun map[string]string) *FieldMapping {
	m := &FieldMapping{
		toJira:    make(map[string]string, len(toJira)),
		toShotgun: make(map[string]string, len(toShotgun)),
	}
	for k, v := range toJira {
		m.toJira[k] = v
	}
	for k, v := range toShotgun {
		m.toShotgun[k] = v
	}
	return m
}

// JiraField returns the Jira field id a Shotgun field syncs to. ok is false
// for unmapped fields.
func (m *FieldMapping) JiraField(sgField string) (string, bool) {
	id, ok := m.toJira[sgField]
	return id, ok
}

// ShotgunField returns the Shotgun field a Jira field id syncs to. ok is
// false for unmapped fields.
func (m *FieldMapping) ShotgunField(jiraFieldID string) (string, bool) {
	name, ok := m.toShotgun[jiraFieldID]
	return name, ok
}

// ShotgunFields returns the Shotgun fields with an outbound mapping,
// sorted.
func (m *FieldMapping) ShotgunFields() []string {
	fields := make([]string, 0, len(m.toJira))
	for f := range m.toJira {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// MappedShotgunFields returns the Shotgun fields reachable from inbound
// changes, sorted and deduplicated. These are the fields an inbound update
// may need current values for.
func (m *FieldMapping) MappedShotgunFields() []string {
	seen := make(map[string]bool, len(m.toShotgun))
	fields := make([]string, 0, len(m.toShotgun))
	for _, f := range m.toShotgun {
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// =============================================================================
// STATUS MAPPING
// =============================================================================

// StatusMapping maps Shotgun status codes to Jira status names. The
// reverse direction is derived; when several codes share one Jira status,
// the smallest code wins so lookups stay deterministic.
type StatusMapping map[string]string

// JiraStatus returns the Jira status name for a Shotgun status code.
func (m StatusMapping) JiraStatus(code string) (string, bool) {
	name, ok := m[code]
	return name, ok
}

// ShotgunCode returns the Shotgun status code for a Jira status name,
// matched ignoring case.
func (m StatusMapping) ShotgunCode(jiraStatus string) (string, bool) {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if strings.EqualFold(m[code], jiraStatus) {
			return code, true
		}
	}
	return "", false
}
