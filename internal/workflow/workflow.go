// Package workflow applies partial updates to a registration while keeping step
// ordering and the company-details review state consistent.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"incorpapi/internal/fee"
	"incorpapi/internal/model"
)

// StatusCompleted is the status label of a finished registration.
const StatusCompleted = "completed"

// ErrConflict matches every ConflictError.
var ErrConflict = errors.New("conflict")

// ConflictError rejects a patch that would break step ordering or combine
// contradictory review decisions.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// Result describes what Apply changed.
type Result struct {
	Registration *model.Registration
	// Changed lists the applied keys, sorted.
	Changed []string
	// Ignored lists recognised keys that were skipped because their value could
	// not be decoded or because they are read-only.
	Ignored []string
	// FeesRecomputed is set when the roster changed and AdditionalFees was refreshed.
	FeesRecomputed bool
	// PaymentApproved is set when paymentApproved went from false to true.
	PaymentApproved bool
	// Completed is set when the status became StatusCompleted.
	Completed bool
}

// staged holds the decoded values of a patch before any of them is applied.
type staged struct {
	step   *model.Step
	status *string
	flags  map[string]bool

	approved, rejected, locked *bool

	contact      *model.ContactDetails
	company      *model.CompanyDetails
	shareholders *[]model.Shareholder
	directors    *[]model.Director
	documents    map[string]*model.DocumentSlot

	startDate     **time.Time
	expireDays    *int
	expireDate    **time.Time
	isExpired     *bool
	sharedWith    *model.SharedAccess
	changed, skip []string
}

// Apply merges p into reg and returns the updated copy. reg itself is left
// untouched when an error is returned. Unknown keys are ignored.
func Apply(reg *model.Registration, p Patch, rates model.FeeRates) (Result, error) {
	if reg == nil {
		return Result{}, errors.New("workflow: nil registration")
	}

	st := decode(p)

	next := *reg
	if err := applyStep(&next, st.step); err != nil {
		return Result{}, err
	}
	if err := applyReview(&next, st.approved, st.rejected, st.locked); err != nil {
		return Result{}, err
	}

	if st.status != nil {
		next.Status = *st.status
	}
	for key, v := range st.flags {
		setFlag(&next, key, v)
	}
	if st.contact != nil {
		next.Contact = *st.contact
	}
	if st.company != nil {
		next.Company = *st.company
	}

	res := Result{}
	if st.shareholders != nil {
		next.Shareholders = *st.shareholders
	}
	if st.directors != nil {
		next.Directors = *st.directors
	}
	if st.shareholders != nil || st.directors != nil {
		fees := fee.Compute(next.Shareholders, next.Directors, rates)
		next.AdditionalFees = &fees
		res.FeesRecomputed = true
	}

	if st.documents != nil {
		docs := make(model.Documents, len(reg.Documents)+len(st.documents))
		maps.Copy(docs, reg.Documents)
		for slot, d := range st.documents {
			if d == nil {
				delete(docs, slot)
				continue
			}
			docs[slot] = *d
		}
		next.Documents = docs
	}

	applyExpiry(&next, st)

	if st.sharedWith != nil {
		next.SharedWithEmails = *st.sharedWith
	}

	res.Registration = &next
	res.Changed = st.changed
	res.Ignored = st.skip
	res.PaymentApproved = !reg.PaymentApproved && next.PaymentApproved
	res.Completed = reg.Status != StatusCompleted && next.Status == StatusCompleted
	sort.Strings(res.Changed)
	sort.Strings(res.Ignored)
	return res, nil
}

// Reopen moves reg back to an earlier (or the same) step. Reopening at or before
// company-details also clears the review state so details can be edited again.
func Reopen(reg *model.Registration, step model.Step) (*model.Registration, error) {
	if reg == nil {
		return nil, errors.New("workflow: nil registration")
	}
	if !step.Valid() {
		return nil, conflictf("unknown step %q", step)
	}
	if cur := reg.CurrentStep.Index(); cur >= 0 && step.Index() > cur {
		return nil, conflictf("cannot reopen %s: registration is at %s", step, reg.CurrentStep)
	}
	next := *reg
	next.CurrentStep = step
	if step.Index() <= model.StepCompanyDetails.Index() {
		next.CompanyDetailsState = model.ApprovalNone
	}
	return &next, nil
}

func applyStep(next *model.Registration, step *model.Step) error {
	if step == nil || *step == next.CurrentStep {
		return nil
	}
	following, ok := next.CurrentStep.Next()
	if !ok || following != *step {
		return conflictf("cannot move from %s to %s: steps advance one at a time", next.CurrentStep, *step)
	}
	next.CurrentStep = *step
	return nil
}

func applyReview(next *model.Registration, approved, rejected, locked *bool) error {
	isTrue := func(b *bool) bool { return b != nil && *b }
	isFalse := func(b *bool) bool { return b != nil && !*b }

	switch {
	case isTrue(approved) && isTrue(rejected):
		return conflictf("company details cannot be approved and rejected at once")
	case isTrue(approved) && isTrue(locked):
		return conflictf("approving company details releases the lock")
	case isTrue(rejected) && isTrue(locked):
		return conflictf("rejecting company details releases the lock")
	}

	state := next.CompanyDetailsState
	switch {
	case isTrue(approved):
		state = model.ApprovalApproved
	case isTrue(rejected):
		state = model.ApprovalRejected
	case isTrue(locked):
		if state == model.ApprovalApproved {
			return conflictf("company details are already approved")
		}
		state = model.ApprovalLocked
	default:
		if (isFalse(approved) && state == model.ApprovalApproved) ||
			(isFalse(rejected) && state == model.ApprovalRejected) ||
			(isFalse(locked) && state == model.ApprovalLocked) {
			state = model.ApprovalNone
		}
	}
	next.CompanyDetailsState = state
	return nil
}

func setFlag(next *model.Registration, key string, v bool) {
	switch key {
	case KeyPaymentApproved:
		next.PaymentApproved = v
	case KeyDetailsApproved:
		next.DetailsApproved = v
	case KeyDocumentsApproved:
		next.DocumentsApproved = v
	case KeyDocumentsPublished:
		next.DocumentsPublished = v
	case KeyDocumentsAcknowledged:
		next.DocumentsAcknowledged = v
	case KeyBalancePaymentApproved:
		next.BalancePaymentApproved = v
	}
}

// applyExpiry keeps expireDate = registerStartDate + expireDays unless the patch
// sets expireDate explicitly.
func applyExpiry(next *model.Registration, st staged) {
	if st.startDate != nil {
		next.RegisterStartDate = *st.startDate
	}
	if st.expireDays != nil {
		next.ExpireDays = *st.expireDays
	}
	if st.isExpired != nil {
		next.IsExpired = *st.isExpired
	}
	switch {
	case st.expireDate != nil:
		next.ExpireDate = *st.expireDate
	case st.startDate != nil || st.expireDays != nil:
		next.ExpireDate = ExpireDate(next.RegisterStartDate, next.ExpireDays)
	}
}

// ExpireDate derives the expiry date from a start date and a number of days.
// It is nil when there is no start date or no positive duration.
func ExpireDate(start *time.Time, days int) *time.Time {
	if start == nil || days <= 0 {
		return nil
	}
	d := start.AddDate(0, 0, days)
	return &d
}

func decode(p Patch) staged {
	st := staged{flags: map[string]bool{}}

	ok := func(key string, err error) bool {
		if err != nil {
			st.skip = append(st.skip, key)
			return false
		}
		st.changed = append(st.changed, key)
		return true
	}

	for key, raw := range p {
		switch key {
		case KeyCurrentStep:
			var s model.Step
			if ok(key, json.Unmarshal(raw, &s)) {
				st.step = &s
			}
		case KeyStatus:
			var s string
			if ok(key, json.Unmarshal(raw, &s)) {
				s = strings.TrimSpace(s)
				st.status = &s
			}
		case KeyPaymentApproved, KeyDetailsApproved, KeyDocumentsApproved, KeyDocumentsPublished,
			KeyDocumentsAcknowledged, KeyBalancePaymentApproved:
			var b bool
			if ok(key, json.Unmarshal(raw, &b)) {
				st.flags[key] = b
			}
		case KeyCompanyDetailsApproved, KeyCompanyDetailsRejected, KeyCompanyDetailsLocked:
			var b bool
			if ok(key, json.Unmarshal(raw, &b)) {
				switch key {
				case KeyCompanyDetailsApproved:
					st.approved = &b
				case KeyCompanyDetailsRejected:
					st.rejected = &b
				default:
					st.locked = &b
				}
			}
		case KeyContact:
			var c model.ContactDetails
			if ok(key, json.Unmarshal(raw, &c)) {
				c.Email = model.NormalizeEmail(c.Email)
				st.contact = &c
			}
		case KeyCompany:
			var c model.CompanyDetails
			if ok(key, json.Unmarshal(raw, &c)) {
				st.company = &c
			}
		case KeyShareholders:
			var s []model.Shareholder
			if ok(key, json.Unmarshal(raw, &s)) {
				if s == nil {
					s = []model.Shareholder{}
				}
				st.shareholders = &s
			}
		case KeyDirectors:
			var d []model.Director
			if ok(key, json.Unmarshal(raw, &d)) {
				if d == nil {
					d = []model.Director{}
				}
				st.directors = &d
			}
		case KeyDocuments:
			decodeDocuments(&st, raw)
		case KeyRegisterStartDate, KeyExpireDate:
			var d *time.Time
			var err error
			if !p.isNull(key) {
				var t time.Time
				t, err = parseDate(raw)
				d = &t
			}
			if ok(key, err) {
				if key == KeyRegisterStartDate {
					st.startDate = &d
				} else {
					st.expireDate = &d
				}
			}
		case KeyExpireDays:
			var n int
			err := json.Unmarshal(raw, &n)
			if err == nil && n < 0 {
				err = errors.New("negative expireDays")
			}
			if ok(key, err) {
				st.expireDays = &n
			}
		case KeyIsExpired:
			var b bool
			if ok(key, json.Unmarshal(raw, &b)) {
				st.isExpired = &b
			}
		case KeySharedWithEmails:
			var s model.SharedAccess
			if ok(key, json.Unmarshal(raw, &s)) {
				shared := normalizeShared(s)
				st.sharedWith = &shared
			}
		default:
			if readOnlyKeys[key] {
				st.skip = append(st.skip, key)
			}
		}
	}
	return st
}

// decodeDocuments merges slot by slot; a null slot removes it.
func decodeDocuments(st *staged, raw json.RawMessage) {
	var slots map[string]json.RawMessage
	if err := json.Unmarshal(raw, &slots); err != nil || slots == nil {
		st.skip = append(st.skip, KeyDocuments)
		return
	}
	st.documents = make(map[string]*model.DocumentSlot, len(slots))
	for name, v := range slots {
		if strings.TrimSpace(string(v)) == "null" {
			st.documents[name] = nil
			continue
		}
		var slot model.DocumentSlot
		if err := json.Unmarshal(v, &slot); err != nil {
			st.skip = append(st.skip, KeyDocuments+"."+name)
			continue
		}
		st.documents[name] = &slot
	}
	if len(st.documents) == 0 {
		st.documents = nil
		return
	}
	st.changed = append(st.changed, KeyDocuments)
}

// normalizeShared stores writes in the current shape with lower-cased emails.
// Legacy entries carry their implicit approval over.
func normalizeShared(s model.SharedAccess) model.SharedAccess {
	if s.Kind == model.LegacyList {
		entries := make([]model.SharedEntry, 0, len(s.Legacy))
		for _, e := range s.Legacy {
			entries = append(entries, model.SharedEntry{Email: e, Status: model.ShareApproved})
		}
		return model.NewApprovalList(entries...)
	}
	return model.NewApprovalList(s.Entries...)
}
