package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Step is one stage of the fixed incorporation workflow.
type Step string

const (
	StepContactDetails Step = "contact-details"
	StepCompanyDetails Step = "company-details"
	StepDocumentation  Step = "documentation"
	StepPayment        Step = "payment"
	StepIncorporation  Step = "incorporation"
)

// Steps lists the workflow in order.
var Steps = []Step{
	StepContactDetails,
	StepCompanyDetails,
	StepDocumentation,
	StepPayment,
	StepIncorporation,
}

// Index returns the position of s in Steps, or -1 for an unknown step.
func (s Step) Index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool { return s.Index() >= 0 }

// Next returns the step after s. ok is false for the last step.
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i == len(Steps)-1 {
		return "", false
	}
	return Steps[i+1], true
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st := Step(raw)
	if !st.Valid() {
		return fmt.Errorf("unknown step %q", raw)
	}
	*s = st
	return nil
}

// ApprovalState is the review state of the company-details step.
// Exactly one state holds at a time, so approved and rejected can never both be set
// and a lock never survives a decision.
type ApprovalState string

const (
	ApprovalNone     ApprovalState = "none"
	ApprovalLocked   ApprovalState = "locked"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

func (a ApprovalState) Locked() bool   { return a == ApprovalLocked }
func (a ApprovalState) Approved() bool { return a == ApprovalApproved }
func (a ApprovalState) Rejected() bool { return a == ApprovalRejected }

// ParseApprovalState maps a stored value to a state; empty or unknown values are none.
func ParseApprovalState(s string) ApprovalState {
	switch ApprovalState(s) {
	case ApprovalLocked, ApprovalApproved, ApprovalRejected:
		return ApprovalState(s)
	default:
		return ApprovalNone
	}
}

// ContactDetails is captured by the contact-details step.
type ContactDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CompanyDetails is captured by the company-details step.
type CompanyDetails struct {
	ProposedNames    []string `json:"proposedNames,omitempty"`
	BusinessActivity string   `json:"businessActivity,omitempty"`
	ShareCapital     string   `json:"shareCapital,omitempty"`
}

// Registration is one customer's company-incorporation case.
type Registration struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"ownerUserId"`

	CurrentStep Step   `json:"currentStep"`
	Status      string `json:"status"`

	PaymentApproved        bool          `json:"paymentApproved"`
	DetailsApproved        bool          `json:"detailsApproved"`
	DocumentsApproved      bool          `json:"documentsApproved"`
	DocumentsPublished     bool          `json:"documentsPublished"`
	DocumentsAcknowledged  bool          `json:"documentsAcknowledged"`
	BalancePaymentApproved bool          `json:"balancePaymentApproved"`
	CompanyDetailsState    ApprovalState `json:"companyDetailsState"`

	Contact ContactDetails `json:"contact"`
	Company CompanyDetails `json:"company"`

	Shareholders   []Shareholder `json:"shareholders"`
	Directors      []Director    `json:"directors"`
	AdditionalFees *FeeBreakdown `json:"additionalFees,omitempty"`

	Documents Documents `json:"documents"`

	RegisterStartDate        *time.Time `json:"registerStartDate,omitempty"`
	ExpireDays               int        `json:"expireDays"`
	ExpireDate               *time.Time `json:"expireDate,omitempty"`
	IsExpired                bool       `json:"isExpired"`
	ExpiryNotificationSentAt *time.Time `json:"expiryNotificationSentAt"`

	SharedWithEmails SharedAccess `json:"sharedWithEmails"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON adds the company-details flags derived from CompanyDetailsState.
func (r Registration) MarshalJSON() ([]byte, error) {
	type plain Registration
	return json.Marshal(struct {
		plain
		CompanyDetailsLocked   bool `json:"companyDetailsLocked"`
		CompanyDetailsApproved bool `json:"companyDetailsApproved"`
		CompanyDetailsRejected bool `json:"companyDetailsRejected"`
	}{
		plain:                  plain(r),
		CompanyDetailsLocked:   r.CompanyDetailsState.Locked(),
		CompanyDetailsApproved: r.CompanyDetailsState.Approved(),
		CompanyDetailsRejected: r.CompanyDetailsState.Rejected(),
	})
}

// DocumentLocations returns the storage location of every document attached to r.
func (r *Registration) DocumentLocations() []string {
	var out []string
	for _, slot := range r.Documents.SortedKeys() {
		for _, ref := range r.Documents[slot].Refs {
			if ref.Location != "" {
				out = append(out, ref.Location)
			}
		}
	}
	return out
}

// Requester identifies the caller of a registration operation.
type Requester struct {
	UserID string
	Email  string
	Admin  bool
}
