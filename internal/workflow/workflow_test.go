package workflow

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incorpapi/internal/fee"
	"incorpapi/internal/model"
)

var testRates = model.FeeRates{
	DirectorLocal:             decimal.NewFromInt(1000),
	DirectorForeign:           decimal.NewFromInt(1500),
	ShareholderLocalNatural:   decimal.NewFromInt(500),
	ShareholderLocalEntity:    decimal.NewFromInt(800),
	ShareholderForeignNatural: decimal.NewFromInt(1200),
	ShareholderForeignEntity:  decimal.NewFromInt(2000),
}

func mustPatch(t *testing.T, s string) Patch {
	t.Helper()
	p, err := ParsePatch([]byte(s))
	require.NoError(t, err)
	return p
}

func TestParsePatch(t *testing.T) {
	_, err := ParsePatch([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = ParsePatch([]byte(`  `))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = ParsePatch([]byte(`{"status":`))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	p, err := ParsePatch([]byte(`{"status":"x","unknown":1}`))
	require.NoError(t, err)
	assert.True(t, p.Has("status"))
}

func TestPatch_AdminKeys(t *testing.T) {
	p := mustPatch(t, `{"paymentApproved":true,"contact":{},"companyDetailsApproved":true,"companyDetailsLocked":true}`)
	assert.Equal(t, []string{"companyDetailsApproved", "paymentApproved"}, p.AdminKeys())
}

func TestApply_StepOrdering(t *testing.T) {
	tests := []struct {
		name     string
		current  model.Step
		patch    string
		wantStep model.Step
		wantErr  bool
	}{
		{name: "advance one", current: model.StepContactDetails, patch: `{"currentStep":"company-details"}`, wantStep: model.StepCompanyDetails},
		{name: "stay", current: model.StepPayment, patch: `{"currentStep":"payment"}`, wantStep: model.StepPayment},
		{name: "skip ahead", current: model.StepContactDetails, patch: `{"currentStep":"documentation"}`, wantErr: true},
		{name: "regress", current: model.StepPayment, patch: `{"currentStep":"company-details"}`, wantErr: true},
		{name: "past last", current: model.StepIncorporation, patch: `{"currentStep":"contact-details"}`, wantErr: true},
		{name: "unknown step ignored", current: model.StepPayment, patch: `{"currentStep":"signing"}`, wantStep: model.StepPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &model.Registration{ID: "r1", CurrentStep: tt.current}
			res, err := Apply(reg, mustPatch(t, tt.patch), testRates)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConflict)
				var ce *ConflictError
				assert.True(t, errors.As(err, &ce))
				assert.NotEmpty(t, ce.Reason)
				assert.Equal(t, tt.current, reg.CurrentStep)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStep, res.Registration.CurrentStep)
		})
	}
}

func TestApply_ReviewExclusivity(t *testing.T) {
	tests := []struct {
		name    string
		from    model.ApprovalState
		patch   string
		want    model.ApprovalState
		wantErr bool
	}{
		{name: "approve clears rejected and lock", from: model.ApprovalRejected, patch: `{"companyDetailsApproved":true}`, want: model.ApprovalApproved},
		{name: "approve locked", from: model.ApprovalLocked, patch: `{"companyDetailsApproved":true}`, want: model.ApprovalApproved},
		{name: "reject unlocks", from: model.ApprovalLocked, patch: `{"companyDetailsRejected":true}`, want: model.ApprovalRejected},
		{name: "reject clears approval", from: model.ApprovalApproved, patch: `{"companyDetailsRejected":true}`, want: model.ApprovalRejected},
		{name: "submit for review", from: model.ApprovalNone, patch: `{"companyDetailsLocked":true}`, want: model.ApprovalLocked},
		{name: "resubmit after rejection", from: model.ApprovalRejected, patch: `{"companyDetailsLocked":true}`, want: model.ApprovalLocked},
		{name: "unlock", from: model.ApprovalLocked, patch: `{"companyDetailsLocked":false}`, want: model.ApprovalNone},
		{name: "unlock when approved is a no-op", from: model.ApprovalApproved, patch: `{"companyDetailsLocked":false}`, want: model.ApprovalApproved},
		{name: "withdraw approval", from: model.ApprovalApproved, patch: `{"companyDetailsApproved":false}`, want: model.ApprovalNone},
		{name: "approve with rejected false", from: model.ApprovalRejected, patch: `{"companyDetailsApproved":true,"companyDetailsRejected":false}`, want: model.ApprovalApproved},
		{name: "lock approved", from: model.ApprovalApproved, patch: `{"companyDetailsLocked":true}`, wantErr: true},
		{name: "approve and reject", from: model.ApprovalLocked, patch: `{"companyDetailsApproved":true,"companyDetailsRejected":true}`, wantErr: true},
		{name: "approve and lock", from: model.ApprovalNone, patch: `{"companyDetailsApproved":true,"companyDetailsLocked":true}`, wantErr: true},
		{name: "reject and lock", from: model.ApprovalNone, patch: `{"companyDetailsRejected":true,"companyDetailsLocked":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &model.Registration{ID: "r1", CurrentStep: model.StepCompanyDetails, CompanyDetailsState: tt.from}
			res, err := Apply(reg, mustPatch(t, tt.patch), testRates)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConflict)
				assert.Equal(t, tt.from, reg.CompanyDetailsState)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Registration.CompanyDetailsState)
		})
	}
}

func TestApply_ApproveRejectedLockedRegistration(t *testing.T) {
	// Stored rows written by older code can carry both flags; they load as rejected.
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepCompanyDetails, CompanyDetailsState: model.ApprovalRejected}

	res, err := Apply(reg, mustPatch(t, `{"companyDetailsApproved":true}`), testRates)
	require.NoError(t, err)

	b, err := json.Marshal(res.Registration)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, true, out["companyDetailsApproved"])
	assert.Equal(t, false, out["companyDetailsRejected"])
	assert.Equal(t, false, out["companyDetailsLocked"])
}

func TestApply_RosterRecomputesFees(t *testing.T) {
	reg := &model.Registration{
		ID:          "r1",
		CurrentStep: model.StepCompanyDetails,
		Directors:   []model.Director{{Name: "D", Residency: model.ResidencyLocal}},
	}
	patch := mustPatch(t, `{"shareholders":[
		{"name":"A","residency":"local","type":"natural-person"},
		{"name":"B","residency":"local","type":"natural-person"},
		{"name":"C","residency":"foreign","type":"legal-entity"}
	]}`)

	res, err := Apply(reg, patch, testRates)
	require.NoError(t, err)

	assert.True(t, res.FeesRecomputed)
	require.NotNil(t, res.Registration.AdditionalFees)
	assert.Equal(t, "3000", res.Registration.AdditionalFees.Shareholders.Total.String())
	assert.Equal(t, "1000", res.Registration.AdditionalFees.Directors.Total.String())
	assert.Equal(t, "4000", res.Registration.AdditionalFees.Total.String())

	want := fee.Compute(res.Registration.Shareholders, res.Registration.Directors, testRates)
	assert.True(t, want.Total.Equal(res.Registration.AdditionalFees.Total))
	assert.Nil(t, reg.AdditionalFees)
}

func TestApply_NoRosterKeepsCachedFees(t *testing.T) {
	cached := fee.Compute(nil, []model.Director{{}}, testRates)
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepContactDetails, AdditionalFees: &cached}

	res, err := Apply(reg, mustPatch(t, `{"contact":{"name":"Ann","email":"Ann@Example.com"}}`), testRates)
	require.NoError(t, err)

	assert.False(t, res.FeesRecomputed)
	assert.Same(t, reg.AdditionalFees, res.Registration.AdditionalFees)
	assert.Equal(t, "ann@example.com", res.Registration.Contact.Email)
}

func TestApply_IgnoresUnknownAndInvalid(t *testing.T) {
	reg := &model.Registration{ID: "r1", OwnerUserID: "u1", CurrentStep: model.StepContactDetails, Status: "new"}
	patch := mustPatch(t, `{
		"futureField": {"x": 1},
		"ownerUserId": "attacker",
		"paymentApproved": "yes",
		"directors": [{"name":"X","residency":"mars"}],
		"status": "in-review"
	}`)

	res, err := Apply(reg, patch, testRates)
	require.NoError(t, err)

	assert.Equal(t, "u1", res.Registration.OwnerUserID)
	assert.False(t, res.Registration.PaymentApproved)
	assert.Nil(t, res.Registration.Directors)
	assert.Equal(t, "in-review", res.Registration.Status)
	assert.Equal(t, []string{"directors", "ownerUserId", "paymentApproved"}, res.Ignored)
	assert.Equal(t, []string{"status"}, res.Changed)
	assert.False(t, res.FeesRecomputed)
}

func TestApply_DocumentsMergeBySlot(t *testing.T) {
	reg := &model.Registration{
		ID:          "r1",
		CurrentStep: model.StepDocumentation,
		Documents: model.Documents{
			"passport": {Single: true, Refs: []model.DocumentRef{{Name: "p.pdf", Location: "docs/p.pdf"}}},
			"utility":  {Refs: []model.DocumentRef{{Name: "u.pdf", Location: "docs/u.pdf"}}},
		},
	}
	patch := mustPatch(t, `{"documents":{"utility":null,"articles":[{"name":"a.pdf","mediaType":"application/pdf","size":10,"location":"docs/a.pdf"}]}}`)

	res, err := Apply(reg, patch, testRates)
	require.NoError(t, err)

	docs := res.Registration.Documents
	assert.Contains(t, docs, "passport")
	assert.Contains(t, docs, "articles")
	assert.NotContains(t, docs, "utility")
	assert.Contains(t, reg.Documents, "utility")
}

func TestApply_DocumentsChangedOnlyWhenASlotApplies(t *testing.T) {
	reg := &model.Registration{
		ID:          "r1",
		CurrentStep: model.StepDocumentation,
		Documents: model.Documents{
			"passport": {Single: true, Refs: []model.DocumentRef{{Name: "p.pdf", Location: "docs/p.pdf"}}},
		},
	}

	res, err := Apply(reg, mustPatch(t, `{"documents":{"passport":5,"utility":"u.pdf"}}`), testRates)
	require.NoError(t, err)
	assert.NotContains(t, res.Changed, KeyDocuments)
	assert.Equal(t, []string{"documents.passport", "documents.utility"}, res.Ignored)
	assert.Equal(t, reg.Documents, res.Registration.Documents)

	res, err = Apply(reg, mustPatch(t, `{"documents":{"passport":5,"utility":[{"name":"u.pdf","location":"docs/u.pdf"}]}}`), testRates)
	require.NoError(t, err)
	assert.Contains(t, res.Changed, KeyDocuments)
	assert.Equal(t, []string{"documents.passport"}, res.Ignored)
	assert.Contains(t, res.Registration.Documents, "utility")
}

func TestApply_ExpiryDates(t *testing.T) {
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepContactDetails}

	res, err := Apply(reg, mustPatch(t, `{"registerStartDate":"2026-01-10","expireDays":30}`), testRates)
	require.NoError(t, err)
	require.NotNil(t, res.Registration.ExpireDate)
	assert.Equal(t, "2026-02-09", res.Registration.ExpireDate.Format(time.DateOnly))

	res, err = Apply(res.Registration, mustPatch(t, `{"expireDays":5,"expireDate":"2026-12-31T08:00:00Z"}`), testRates)
	require.NoError(t, err)
	assert.Equal(t, "2026-12-31", res.Registration.ExpireDate.Format(time.DateOnly))
	assert.Equal(t, 5, res.Registration.ExpireDays)

	res, err = Apply(res.Registration, mustPatch(t, `{"expireDate":null,"isExpired":false}`), testRates)
	require.NoError(t, err)
	assert.Nil(t, res.Registration.ExpireDate)

	res, err = Apply(res.Registration, mustPatch(t, `{"expireDays":-3}`), testRates)
	require.NoError(t, err)
	assert.Equal(t, []string{"expireDays"}, res.Ignored)
}

func TestApply_SharedWithEmailsNormalized(t *testing.T) {
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepContactDetails}

	res, err := Apply(reg, mustPatch(t, `{"sharedWithEmails":["Legacy@Example.com"]}`), testRates)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalList, res.Registration.SharedWithEmails.Kind)
	assert.Equal(t, []model.SharedEntry{{Email: "legacy@example.com", Status: model.ShareApproved}}, res.Registration.SharedWithEmails.Entries)

	res, err = Apply(reg, mustPatch(t, `{"sharedWithEmails":[{"email":"Friend@Example.com","status":"pending"}]}`), testRates)
	require.NoError(t, err)
	assert.Equal(t, []model.SharedEntry{{Email: "friend@example.com", Status: model.SharePending}}, res.Registration.SharedWithEmails.Entries)
}

func TestApply_TransitionsReported(t *testing.T) {
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepPayment, Status: "payment-processing"}

	res, err := Apply(reg, mustPatch(t, `{"paymentApproved":true,"status":"completed"}`), testRates)
	require.NoError(t, err)
	assert.True(t, res.PaymentApproved)
	assert.True(t, res.Completed)

	res, err = Apply(res.Registration, mustPatch(t, `{"paymentApproved":true,"status":"completed"}`), testRates)
	require.NoError(t, err)
	assert.False(t, res.PaymentApproved)
	assert.False(t, res.Completed)
}

func TestReopen(t *testing.T) {
	reg := &model.Registration{ID: "r1", CurrentStep: model.StepPayment, CompanyDetailsState: model.ApprovalApproved}

	out, err := Reopen(reg, model.StepDocumentation)
	require.NoError(t, err)
	assert.Equal(t, model.StepDocumentation, out.CurrentStep)
	assert.Equal(t, model.ApprovalApproved, out.CompanyDetailsState)

	out, err = Reopen(reg, model.StepCompanyDetails)
	require.NoError(t, err)
	assert.Equal(t, model.StepCompanyDetails, out.CurrentStep)
	assert.Equal(t, model.ApprovalNone, out.CompanyDetailsState)
	assert.Equal(t, model.StepPayment, reg.CurrentStep)

	_, err = Reopen(reg, model.StepIncorporation)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = Reopen(reg, model.Step("nowhere"))
	assert.ErrorIs(t, err, ErrConflict)
}
