package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"incorpapi/internal/access"
	"incorpapi/internal/expiry"
	"incorpapi/internal/fee"
	"incorpapi/internal/model"
	"incorpapi/internal/notify"
	"incorpapi/internal/repository"
	"incorpapi/internal/storage"
	"incorpapi/internal/workflow"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("registration not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrStoreUnavailable = errors.New("registration store unavailable")
)

// StatusInProgress is the status label of a newly created registration.
const StatusInProgress = "in-progress"

var tracer = otel.Tracer("incorpapi/internal/service")

// CreateInput is the first contact-details submission.
type CreateInput struct {
	ID           string               `json:"id"`
	Contact      model.ContactDetails `json:"contact"`
	Company      model.CompanyDetails `json:"company"`
	Shareholders []model.Shareholder  `json:"shareholders"`
	Directors    []model.Director     `json:"directors"`
}

// RegistrationListResult is the service-level DTO for paginated registrations.
type RegistrationListResult struct {
	Items []model.Registration `json:"data"`
	Total int                  `json:"total"`
}

// PatchResult is the updated registration plus what the patch did.
type PatchResult struct {
	Registration *model.Registration `json:"data"`
	Changed      []string            `json:"changed"`
	Ignored      []string            `json:"ignored"`
}

// DocumentLink is a time-limited download link for one stored document.
type DocumentLink struct {
	Name      string    `json:"name"`
	MediaType string    `json:"mediaType,omitempty"`
	Size      int64     `json:"size,omitempty"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiryChecker runs the per-registration expiry check.
type ExpiryChecker interface {
	CheckAndNotify(ctx context.Context, reg *model.Registration) expiry.Outcome
}

// Sweeper runs one batch of expiry checks.
type Sweeper interface {
	Sweep(ctx context.Context) (expiry.Summary, error)
}

// RegistrationService defines the registration use cases. Every method takes the
// requester so access rules are applied in one place.
type RegistrationService interface {
	// Create stores a new registration owned by the requester. Creating an id
	// that already exists returns the stored registration with created=false.
	Create(ctx context.Context, req model.Requester, in CreateInput) (reg *model.Registration, created bool, err error)

	// Get returns a registration the requester may read. A due expiry warning is
	// sent on the way out.
	Get(ctx context.Context, req model.Requester, id string) (*model.Registration, error)

	// List returns registrations the requester owns or has an approved share
	// for. Administrators see all of them.
	List(ctx context.Context, req model.Requester, limit, offset int) (*RegistrationListResult, error)

	// Patch merges a sparse JSON object into the registration in one transaction.
	Patch(ctx context.Context, req model.Requester, id string, body []byte) (*PatchResult, error)

	// Reopen moves a registration back to an earlier step. Administrators only.
	Reopen(ctx context.Context, req model.Requester, id string, step model.Step) (*model.Registration, error)

	// Delete removes a registration and its stored documents. Administrators only.
	Delete(ctx context.Context, req model.Requester, id string) error

	// Quote prices a roster with the current rates.
	Quote(shareholders []model.Shareholder, directors []model.Director) model.FeeBreakdown

	// Fees prices a stored registration's roster with the current rates.
	Fees(ctx context.Context, req model.Requester, id string) (*model.FeeBreakdown, error)

	// DocumentLinks returns download links for every document in a slot.
	DocumentLinks(ctx context.Context, req model.Requester, id, slot string) ([]DocumentLink, error)

	// SweepExpired runs one expiry sweep. Administrators only.
	SweepExpired(ctx context.Context, req model.Requester) (expiry.Summary, error)
}

// Options carries settings that are not collaborators.
type Options struct {
	Rates      model.FeeRates
	ExpireDays int
	// Location defines the calendar day used for start dates. Defaults to UTC.
	Location *time.Location
	LinkTTL  time.Duration
	Now      func() time.Time
}

type registrationService struct {
	repo    repository.RegistrationRepository
	store   storage.Storage
	sender  notify.Sender
	checker ExpiryChecker
	sweeper Sweeper
	log     *zap.Logger
	opts    Options
}

// NewRegistrationService constructs a new RegistrationService.
func NewRegistrationService(
	repo repository.RegistrationRepository,
	store storage.Storage,
	sender notify.Sender,
	checker ExpiryChecker,
	sweeper Sweeper,
	log *zap.Logger,
	opts Options,
) RegistrationService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 15 * time.Minute
	}
	return &registrationService{
		repo:    repo,
		store:   store,
		sender:  sender,
		checker: checker,
		sweeper: sweeper,
		log:     log,
		opts:    opts,
	}
}

func (s *registrationService) Create(ctx context.Context, req model.Requester, in CreateInput) (*model.Registration, bool, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Create")
	defer span.End()

	if req.UserID == "" {
		return nil, false, fmt.Errorf("%w: requester has no user id", ErrForbidden)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	span.SetAttributes(attribute.String("registration.id", id))

	contact := in.Contact
	contact.Email = model.NormalizeEmail(contact.Email)

	now := s.opts.Now().UTC()
	local := now.In(s.opts.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	reg := &model.Registration{
		ID:                  id,
		OwnerUserID:         req.UserID,
		CurrentStep:         model.StepContactDetails,
		Status:              StatusInProgress,
		CompanyDetailsState: model.ApprovalNone,
		Contact:             contact,
		Company:             in.Company,
		Shareholders:        in.Shareholders,
		Directors:           in.Directors,
		Documents:           model.Documents{},
		RegisterStartDate:   &start,
		ExpireDays:          s.opts.ExpireDays,
		ExpireDate:          workflow.ExpireDate(&start, s.opts.ExpireDays),
		SharedWithEmails:    model.NewApprovalList(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	fees := fee.Compute(in.Shareholders, in.Directors, s.opts.Rates)
	reg.AdditionalFees = &fees

	stored, created, err := s.repo.Create(ctx, reg)
	if err != nil {
		return nil, false, s.fail(span, storeError("create registration", err))
	}
	if !created && !req.Admin && !access.CanRead(stored, req) {
		return nil, false, s.fail(span, ErrForbidden)
	}
	span.SetAttributes(attribute.Bool("registration.created", created))
	return stored, created, nil
}

func (s *registrationService) Get(ctx context.Context, req model.Requester, id string) (*model.Registration, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Get", trace.WithAttributes(attribute.String("registration.id", id)))
	defer span.End()

	reg, err := s.readable(ctx, req, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.checkExpiry(ctx, reg)
	return reg, nil
}

// List returns paginated registrations without exposing repository types.
func (s *registrationService) List(ctx context.Context, req model.Requester, limit, offset int) (*RegistrationListResult, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.List")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	f := repository.ListFilter{All: req.Admin}
	if !req.Admin {
		if req.UserID == "" && req.Email == "" {
			return &RegistrationListResult{Items: []model.Registration{}}, nil
		}
		f.OwnerUserID = req.UserID
		f.SharedEmail = model.NormalizeEmail(req.Email)
	}

	res, err := s.repo.List(ctx, f, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, s.fail(span, storeError("list registrations", err))
	}
	for i := range res.Items {
		s.checkExpiry(ctx, &res.Items[i])
	}
	items := res.Items
	if items == nil {
		items = []model.Registration{}
	}
	return &RegistrationListResult{Items: items, Total: res.Total}, nil
}

func (s *registrationService) Patch(ctx context.Context, req model.Requester, id string, body []byte) (*PatchResult, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Patch", trace.WithAttributes(attribute.String("registration.id", id)))
	defer span.End()

	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := workflow.ParsePatch(body)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	if !req.Admin {
		if keys := p.AdminKeys(); len(keys) > 0 {
			return nil, s.fail(span, fmt.Errorf("%w: only administrators may set %s", ErrForbidden, strings.Join(keys, ", ")))
		}
	}

	var res workflow.Result
	updated, err := s.repo.Mutate(ctx, id, func(current *model.Registration) (*model.Registration, error) {
		if !req.Admin && !access.CanWrite(current, req) {
			return nil, ErrForbidden
		}
		r, err := workflow.Apply(current, p, s.opts.Rates)
		if err != nil {
			return nil, err
		}
		r.Registration.UpdatedAt = s.opts.Now().UTC()
		res = r
		return r.Registration, nil
	})
	if err != nil {
		return nil, s.fail(span, storeError("patch registration", err))
	}

	span.SetAttributes(
		attribute.StringSlice("registration.changed", res.Changed),
		attribute.Bool("registration.fees_recomputed", res.FeesRecomputed),
	)
	if len(res.Ignored) > 0 {
		s.log.Info("patch keys ignored",
			zap.String("registration_id", id),
			zap.Strings("keys", res.Ignored),
		)
	}
	if res.PaymentApproved {
		s.notify(ctx, notify.KindPaymentApproved, updated)
	}
	if res.Completed {
		s.notify(ctx, notify.KindRegistrationCompleted, updated)
	}

	return &PatchResult{Registration: updated, Changed: nonNil(res.Changed), Ignored: nonNil(res.Ignored)}, nil
}

func (s *registrationService) Reopen(ctx context.Context, req model.Requester, id string, step model.Step) (*model.Registration, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Reopen", trace.WithAttributes(
		attribute.String("registration.id", id),
		attribute.String("registration.step", string(step)),
	))
	defer span.End()

	if id == "" {
		return nil, ErrIDRequired
	}
	if !req.Admin {
		return nil, s.fail(span, ErrForbidden)
	}
	updated, err := s.repo.Mutate(ctx, id, func(current *model.Registration) (*model.Registration, error) {
		next, err := workflow.Reopen(current, step)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = s.opts.Now().UTC()
		return next, nil
	})
	if err != nil {
		return nil, s.fail(span, storeError("reopen registration", err))
	}
	return updated, nil
}

// Delete removes the row first, then its files. File deletion is best effort: a
// leftover object is logged rather than failing a delete that already happened.
func (s *registrationService) Delete(ctx context.Context, req model.Requester, id string) error {
	ctx, span := tracer.Start(ctx, "RegistrationService.Delete", trace.WithAttributes(attribute.String("registration.id", id)))
	defer span.End()

	if id == "" {
		return ErrIDRequired
	}
	if !req.Admin {
		return s.fail(span, ErrForbidden)
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.fail(span, storeError("find registration", err))
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.fail(span, storeError("delete registration", err))
	}
	if affected == 0 {
		return s.fail(span, ErrNotFound)
	}

	for _, loc := range reg.DocumentLocations() {
		if err := s.store.Delete(ctx, loc); err != nil {
			s.log.Warn("delete registration document",
				zap.String("registration_id", id),
				zap.String("location", loc),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *registrationService) Quote(shareholders []model.Shareholder, directors []model.Director) model.FeeBreakdown {
	return fee.Compute(shareholders, directors, s.opts.Rates)
}

func (s *registrationService) Fees(ctx context.Context, req model.Requester, id string) (*model.FeeBreakdown, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Fees", trace.WithAttributes(attribute.String("registration.id", id)))
	defer span.End()

	reg, err := s.readable(ctx, req, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	fees := fee.Compute(reg.Shareholders, reg.Directors, s.opts.Rates)
	return &fees, nil
}

func (s *registrationService) DocumentLinks(ctx context.Context, req model.Requester, id, slot string) ([]DocumentLink, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.DocumentLinks", trace.WithAttributes(
		attribute.String("registration.id", id),
		attribute.String("document.slot", slot),
	))
	defer span.End()

	reg, err := s.readable(ctx, req, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	docs, ok := reg.Documents[slot]
	if !ok || len(docs.Refs) == 0 {
		return nil, s.fail(span, ErrDocumentNotFound)
	}

	expires := s.opts.Now().UTC().Add(s.opts.LinkTTL)
	links := make([]DocumentLink, 0, len(docs.Refs))
	for _, ref := range docs.Refs {
		if ref.Location == "" {
			continue
		}
		u, err := s.store.PresignGet(ctx, ref.Location, s.opts.LinkTTL)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("presign %s: %w", ref.Name, err))
		}
		links = append(links, DocumentLink{
			Name:      ref.Name,
			MediaType: ref.MediaType,
			Size:      ref.Size,
			URL:       u,
			ExpiresAt: expires,
		})
	}
	return links, nil
}

func (s *registrationService) SweepExpired(ctx context.Context, req model.Requester) (expiry.Summary, error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.SweepExpired")
	defer span.End()

	if !req.Admin {
		return expiry.Summary{}, s.fail(span, ErrForbidden)
	}
	sum, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return expiry.Summary{}, s.fail(span, storeError("sweep", err))
	}
	return sum, nil
}

// readable loads a registration and applies the read rule.
func (s *registrationService) readable(ctx context.Context, req model.Requester, id string) (*model.Registration, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("find registration", err)
	}
	if !req.Admin && !access.CanRead(reg, req) {
		return nil, ErrForbidden
	}
	return reg, nil
}

// checkExpiry never fails the read it rides on.
func (s *registrationService) checkExpiry(ctx context.Context, reg *model.Registration) {
	out := s.checker.CheckAndNotify(ctx, reg)
	if out.Status == expiry.Sent {
		s.log.Info("expiry notification sent", zap.String("registration_id", reg.ID))
	}
}

func (s *registrationService) notify(ctx context.Context, kind notify.Kind, reg *model.Registration) {
	log := s.log.With(zap.String("registration_id", reg.ID), zap.String("kind", string(kind)))
	if reg.Contact.Email == "" {
		log.Warn("notification skipped: no contact email")
		return
	}
	data := map[string]any{
		"registrationId": reg.ID,
		"name":           reg.Contact.Name,
		"status":         reg.Status,
		"currentStep":    string(reg.CurrentStep),
	}
	if err := s.sender.Send(ctx, kind, reg.Contact.Email, data); err != nil {
		log.Warn("notification failed", zap.Error(err))
	}
}

func (s *registrationService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// storeError maps repository errors onto the service taxonomy. Errors raised by
// the mutation itself (conflicts, access) pass through unchanged.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, workflow.ErrConflict),
		errors.Is(err, ErrForbidden),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
