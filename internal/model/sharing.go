package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ShareStatus is the approval status of a share request.
type ShareStatus string

const (
	SharePending  ShareStatus = "pending"
	ShareApproved ShareStatus = "approved"
	ShareRejected ShareStatus = "rejected"
)

func (s ShareStatus) Valid() bool {
	return s == SharePending || s == ShareApproved || s == ShareRejected
}

// SharedEntry grants, or requests, read access for one email address.
type SharedEntry struct {
	Email  string      `json:"email"`
	Status ShareStatus `json:"status"`
}

// SharedAccessKind tells which stored shape a SharedAccess was decoded from.
type SharedAccessKind int

const (
	// ApprovalList is the current shape: a list of {email, status} objects.
	ApprovalList SharedAccessKind = iota
	// LegacyList is a plain list of email strings, each implicitly approved.
	LegacyList
)

// SharedAccess is the sharing list of a registration. The stored JSON comes in two
// shapes; the shape is resolved once on decode and kept so an untouched list is
// written back the way it was read.
type SharedAccess struct {
	Kind    SharedAccessKind
	Legacy  []string
	Entries []SharedEntry
}

// NewApprovalList builds a current-shape list with lower-cased emails.
func NewApprovalList(entries ...SharedEntry) SharedAccess {
	out := make([]SharedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SharedEntry{Email: NormalizeEmail(e.Email), Status: e.Status})
	}
	return SharedAccess{Kind: ApprovalList, Entries: out}
}

// NewLegacyList builds a legacy-shape list.
func NewLegacyList(emails ...string) SharedAccess {
	return SharedAccess{Kind: LegacyList, Legacy: emails}
}

// Approved reports whether email holds an approved grant. Legacy entries are
// always approved.
func (s SharedAccess) Approved(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	if s.Kind == LegacyList {
		for _, e := range s.Legacy {
			if NormalizeEmail(e) == email {
				return true
			}
		}
		return false
	}
	for _, e := range s.Entries {
		if NormalizeEmail(e.Email) == email && e.Status == ShareApproved {
			return true
		}
	}
	return false
}

// Len is the number of entries regardless of shape.
func (s SharedAccess) Len() int {
	if s.Kind == LegacyList {
		return len(s.Legacy)
	}
	return len(s.Entries)
}

func (s SharedAccess) MarshalJSON() ([]byte, error) {
	if s.Kind == LegacyList {
		if s.Legacy == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Legacy)
	}
	if s.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Entries)
}

// UnmarshalJSON accepts null, an empty list, a list of strings or a list of entries.
// Mixed lists are rejected.
func (s *SharedAccess) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = SharedAccess{Kind: ApprovalList}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("sharedWithEmails: %w", err)
	}
	if len(items) == 0 {
		*s = SharedAccess{Kind: ApprovalList}
		return nil
	}

	first := bytes.TrimSpace(items[0])
	if len(first) > 0 && first[0] == '"' {
		var emails []string
		if err := json.Unmarshal(b, &emails); err != nil {
			return fmt.Errorf("sharedWithEmails: mixed legacy list: %w", err)
		}
		*s = SharedAccess{Kind: LegacyList, Legacy: emails}
		return nil
	}

	var entries []SharedEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("sharedWithEmails: %w", err)
	}
	for i, e := range entries {
		if !e.Status.Valid() {
			return fmt.Errorf("sharedWithEmails[%d]: unknown status %q", i, e.Status)
		}
	}
	*s = SharedAccess{Kind: ApprovalList, Entries: entries}
	return nil
}

// NormalizeEmail trims and lower-cases an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
