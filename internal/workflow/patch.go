package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Patch is a sparse set of field assignments. Only present keys change.
type Patch map[string]json.RawMessage

// Recognised patch keys.
const (
	KeyCurrentStep            = "currentStep"
	KeyStatus                 = "status"
	KeyPaymentApproved        = "paymentApproved"
	KeyDetailsApproved        = "detailsApproved"
	KeyDocumentsApproved      = "documentsApproved"
	KeyDocumentsPublished     = "documentsPublished"
	KeyDocumentsAcknowledged  = "documentsAcknowledged"
	KeyBalancePaymentApproved = "balancePaymentApproved"
	KeyCompanyDetailsLocked   = "companyDetailsLocked"
	KeyCompanyDetailsApproved = "companyDetailsApproved"
	KeyCompanyDetailsRejected = "companyDetailsRejected"
	KeyContact                = "contact"
	KeyCompany                = "company"
	KeyShareholders           = "shareholders"
	KeyDirectors              = "directors"
	KeyDocuments              = "documents"
	KeyRegisterStartDate      = "registerStartDate"
	KeyExpireDays             = "expireDays"
	KeyExpireDate             = "expireDate"
	KeyIsExpired              = "isExpired"
	KeySharedWithEmails       = "sharedWithEmails"
)

// readOnlyKeys are fields clients see but never write directly.
var readOnlyKeys = map[string]bool{
	"id":                       true,
	"ownerUserId":              true,
	"additionalFees":           true,
	"expiryNotificationSentAt": true,
	"companyDetailsState":      true,
	"createdAt":                true,
	"updatedAt":                true,
}

// adminKeys may only be written by administrators.
var adminKeys = map[string]bool{
	KeyStatus:                 true,
	KeyPaymentApproved:        true,
	KeyDetailsApproved:        true,
	KeyDocumentsApproved:      true,
	KeyDocumentsPublished:     true,
	KeyBalancePaymentApproved: true,
	KeyCompanyDetailsApproved: true,
	KeyCompanyDetailsRejected: true,
	KeyRegisterStartDate:      true,
	KeyExpireDays:             true,
	KeyExpireDate:             true,
	KeyIsExpired:              true,
}

// ErrInvalidPatch is returned when a patch body is not a JSON object.
var ErrInvalidPatch = errors.New("patch must be a JSON object")

// ParsePatch decodes a request body into a Patch.
func ParsePatch(body []byte) (Patch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, ErrInvalidPatch
	}
	var p Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return p, nil
}

// AdminKeys returns the keys in p that require an administrator, sorted.
func (p Patch) AdminKeys() []string {
	var out []string
	for k := range p {
		if adminKeys[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether key is present.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Patch) isNull(key string) bool {
	return bytes.Equal(bytes.TrimSpace(p[key]), []byte("null"))
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp and
// returns midnight UTC of that calendar day.
func parseDate(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
