package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nanotrace/certification-backend/internal/audit"
	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/repository"
)

const (
	maxCertificateIDLength = 64
	maxNameFieldLength     = 255
	maxDetailFieldLength   = 100
	defaultPendingLimit    = 50
)

type SubmitInput struct {
	CertificateID string
	ProductName   string
	MaterialType  string
	Supplier      string
	Concentration string
	ParticleSize  string
	MSDSLink      string
}

func (in SubmitInput) normalized() SubmitInput {
	return SubmitInput{
		CertificateID: strings.TrimSpace(in.CertificateID),
		ProductName:   strings.TrimSpace(in.ProductName),
		MaterialType:  strings.TrimSpace(in.MaterialType),
		Supplier:      strings.TrimSpace(in.Supplier),
		Concentration: strings.TrimSpace(in.Concentration),
		ParticleSize:  strings.TrimSpace(in.ParticleSize),
		MSDSLink:      strings.TrimSpace(in.MSDSLink),
	}
}

func (in SubmitInput) validate() error {
	var problems []string
	required := []struct{ name, value string }{
		{"product_name", in.ProductName},
		{"material_type", in.MaterialType},
		{"supplier", in.Supplier},
	}
	for _, f := range required {
		switch {
		case f.value == "":
			problems = append(problems, f.name+" is required")
		case utf8.RuneCountInString(f.value) > maxNameFieldLength:
			problems = append(problems, fmt.Sprintf("%s must be at most %d characters", f.name, maxNameFieldLength))
		}
	}
	if utf8.RuneCountInString(in.Concentration) > maxDetailFieldLength {
		problems = append(problems, fmt.Sprintf("concentration must be at most %d characters", maxDetailFieldLength))
	}
	if utf8.RuneCountInString(in.ParticleSize) > maxDetailFieldLength {
		problems = append(problems, fmt.Sprintf("particle_size must be at most %d characters", maxDetailFieldLength))
	}
	if len(in.CertificateID) > maxCertificateIDLength {
		problems = append(problems, fmt.Sprintf("certificate_id must be at most %d bytes", maxCertificateIDLength))
	}
	if len(problems) > 0 {
		return validationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

type ListFilter struct {
	Status  string
	OwnerID uint
	Search  string
}

// Verification is the public view of a certificate looked up by its public id.
type Verification struct {
	CertificateID string                   `json:"certificate_id"`
	Status        domain.CertificateStatus `json:"status"`
	Valid         bool                     `json:"valid"`
	ProductName   string                   `json:"product_name"`
	MaterialType  string                   `json:"material_type"`
	Supplier      string                   `json:"supplier"`
	SubmittedAt   time.Time                `json:"submitted_at"`
	ApprovedAt    *time.Time               `json:"approved_at,omitempty"`
	RejectedAt    *time.Time               `json:"rejected_at,omitempty"`
}

type CertificateService struct {
	store     repository.Store
	publisher *audit.Publisher
	cache     ListCacheStore
	cacheTTL  time.Duration
	sds       SDSStorage
	logger    *slog.Logger
	reasonMax int
	loads     singleflight.Group

	newID func() string
	now   func() time.Time
}

// NewCertificateService wires the lifecycle engine. sds may be nil when
// document storage is disabled.
func NewCertificateService(
	cfg *config.Config,
	store repository.Store,
	publisher *audit.Publisher,
	cache ListCacheStore,
	sds SDSStorage,
	logger *slog.Logger,
) *CertificateService {
	if cache == nil {
		cache = NewNoopListCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		cacheTTL:  cfg.ListCacheTTL,
		sds:       sds,
		logger:    logger,
		reasonMax: cfg.CertificateReasonMaxLength,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

func (s *CertificateService) Submit(ctx context.Context, ownerID uint, in SubmitInput) (cert *domain.Certificate, err error) {
	ctx, span := observability.StartSpan(ctx, "certificate.submit")
	defer span.End()
	start := time.Now()
	defer func() { observability.RecordCertificateOperation(ctx, "submit", outcomeOf(err), time.Since(start)) }()

	in = in.normalized()
	if err = in.validate(); err != nil {
		return nil, err
	}
	owner, err := s.store.Users().FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError("owner %d does not exist", ownerID)
		}
		return nil, err
	}

	generated := in.CertificateID == ""
	for attempt := 0; ; attempt++ {
		cert = &domain.Certificate{
			CertificateID: in.CertificateID,
			ProductName:   in.ProductName,
			MaterialType:  in.MaterialType,
			Supplier:      in.Supplier,
			Concentration: in.Concentration,
			ParticleSize:  in.ParticleSize,
			MSDSLink:      in.MSDSLink,
			Status:        domain.CertificateStatusPending,
			OwnerID:       owner.ID,
			CreatedAt:     s.now().UTC(),
		}
		if generated {
			cert.CertificateID = s.newID()
		}
		var event *domain.AuditEvent
		err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
			if err := tx.Certificates().Create(ctx, cert); err != nil {
				return err
			}
			event = &domain.AuditEvent{
				Action:         domain.AuditActionSubmit,
				ActorID:        owner.ID,
				ActorEmail:     owner.Email,
				CertificateRef: cert.ID,
				CertificateID:  cert.CertificateID,
				CreatedAt:      cert.CreatedAt,
			}
			return tx.Audit().Append(ctx, event)
		})
		if errors.Is(err, repository.ErrDuplicate) && generated && attempt == 0 {
			s.logger.WarnContext(ctx, "generated certificate id collided, regenerating", "certificate_id", cert.CertificateID)
			continue
		}
		if err != nil {
			return nil, mapRepositoryError(err, "certificate "+cert.CertificateID)
		}
		cert.Owner = owner
		s.afterMutation(ctx, event)
		return cert, nil
	}
}

func (s *CertificateService) Approve(ctx context.Context, certificateRef uint, actor domain.Actor) (*domain.Certificate, error) {
	return s.decide(ctx, domain.AuditActionApprove, certificateRef, actor, repository.Decision{
		Status: domain.CertificateStatusApproved,
	})
}

// Reject stores the trimmed reason cut to the configured number of runes.
func (s *CertificateService) Reject(ctx context.Context, certificateRef uint, actor domain.Actor, reason string) (*domain.Certificate, error) {
	return s.decide(ctx, domain.AuditActionReject, certificateRef, actor, repository.Decision{
		Status: domain.CertificateStatusRejected,
		Reason: truncateRunes(strings.TrimSpace(reason), s.reasonMax),
	})
}

func (s *CertificateService) decide(ctx context.Context, action domain.AuditAction, certificateRef uint, actor domain.Actor, d repository.Decision) (cert *domain.Certificate, err error) {
	ctx, span := observability.StartSpan(ctx, "certificate."+string(action))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.RecordCertificateOperation(ctx, string(action), outcomeOf(err), time.Since(start))
	}()

	if err = Authorize(actor, CapabilityAdmin); err != nil {
		return nil, err
	}
	d.DecidedBy = actor.UserID
	d.At = s.now().UTC()

	var event *domain.AuditEvent
	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		updated, err := tx.Certificates().Transition(ctx, certificateRef, d)
		if err != nil {
			return err
		}
		cert = updated
		event = &domain.AuditEvent{
			Action:         action,
			ActorID:        actor.UserID,
			ActorEmail:     actor.Email,
			CertificateRef: updated.ID,
			CertificateID:  updated.CertificateID,
			Reason:         d.Reason,
			CreatedAt:      d.At,
		}
		return tx.Audit().Append(ctx, event)
	})
	if err != nil {
		return nil, mapRepositoryError(err, fmt.Sprintf("certificate %d", certificateRef))
	}
	s.afterMutation(ctx, event)
	return cert, nil
}

func (s *CertificateService) Get(ctx context.Context, certificateRef uint) (cert *domain.Certificate, err error) {
	start := time.Now()
	defer func() { observability.RecordCertificateOperation(ctx, "get", outcomeOf(err), time.Since(start)) }()

	cert, err = s.store.Certificates().FindByID(ctx, certificateRef)
	if err != nil {
		return nil, mapRepositoryError(err, fmt.Sprintf("certificate %d", certificateRef))
	}
	return cert, nil
}

// GetForActor hides certificates the actor neither owns nor administers.
func (s *CertificateService) GetForActor(ctx context.Context, certificateRef uint, actor domain.Actor) (*domain.Certificate, error) {
	cert, err := s.Get(ctx, certificateRef)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && cert.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: certificate %d", ErrNotFound, certificateRef)
	}
	return cert, nil
}

func (s *CertificateService) List(ctx context.Context, filter ListFilter, page, pageSize int) (res repository.PageResult[domain.Certificate], err error) {
	start := time.Now()
	defer func() { observability.RecordCertificateOperation(ctx, "list", outcomeOf(err), time.Since(start)) }()

	status := domain.CertificateStatus(strings.ToLower(strings.TrimSpace(filter.Status)))
	if status != "" && !status.Valid() {
		return res, validationError("unknown status %q", filter.Status)
	}
	req := repository.NormalizePageRequest(repository.PageRequest{Page: page, PageSize: pageSize})
	rf := repository.CertificateFilter{
		Status:  status,
		OwnerID: filter.OwnerID,
		Search:  strings.TrimSpace(filter.Search),
	}
	key := fmt.Sprintf("status=%s|owner=%d|search=%s|page=%d|size=%d", rf.Status, rf.OwnerID, rf.Search, req.Page, req.PageSize)
	res, err = cachedLoad(ctx, s, certificateListNamespace, key, func(ctx context.Context) (repository.PageResult[domain.Certificate], error) {
		return s.store.Certificates().ListPaged(ctx, rf, req)
	})
	if err != nil {
		return res, err
	}
	observability.RecordListPageSize(ctx, "certificates", len(res.Items))
	return res, nil
}

// Stats caches the certificate counts only. Registrations do not touch the
// certificate namespaces, so the user count is always read live.
func (s *CertificateService) Stats(ctx context.Context) (domain.CertificateStats, error) {
	stats, err := cachedLoad(ctx, s, certificateStatsNamespace, "all", func(ctx context.Context) (domain.CertificateStats, error) {
		counts, err := s.store.Certificates().CountByStatus(ctx)
		if err != nil {
			return domain.CertificateStats{}, err
		}
		stats := domain.CertificateStats{
			Pending:  counts[domain.CertificateStatusPending],
			Approved: counts[domain.CertificateStatusApproved],
			Rejected: counts[domain.CertificateStatusRejected],
		}
		stats.Total = stats.Pending + stats.Approved + stats.Rejected
		return stats, nil
	})
	if err != nil {
		return domain.CertificateStats{}, err
	}
	users, err := s.store.Users().Count(ctx)
	if err != nil {
		return domain.CertificateStats{}, err
	}
	stats.Users = users
	return stats, nil
}

// PendingQueue returns the oldest pending certificates first.
func (s *CertificateService) PendingQueue(ctx context.Context, limit int) ([]domain.Certificate, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	certs, err := s.store.Certificates().ListPending(ctx, min(limit, repository.MaxPageSize))
	if err != nil {
		return nil, err
	}
	if certs == nil {
		certs = []domain.Certificate{}
	}
	return certs, nil
}

// Verify reports the stored status of a public certificate id. Only approved
// certificates are valid.
func (s *CertificateService) Verify(ctx context.Context, certificateID string) (v *Verification, err error) {
	start := time.Now()
	defer func() { observability.RecordCertificateOperation(ctx, "verify", outcomeOf(err), time.Since(start)) }()

	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, validationError("certificate_id is required")
	}
	cert, err := s.store.Certificates().FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, mapRepositoryError(err, "certificate "+certificateID)
	}
	return &Verification{
		CertificateID: cert.CertificateID,
		Status:        cert.Status,
		Valid:         cert.Status == domain.CertificateStatusApproved,
		ProductName:   cert.ProductName,
		MaterialType:  cert.MaterialType,
		Supplier:      cert.Supplier,
		SubmittedAt:   cert.CreatedAt,
		ApprovedAt:    cert.ApprovedAt,
		RejectedAt:    cert.RejectedAt,
	}, nil
}

// AttachSafetyDataSheet uploads a document for a pending certificate owned by
// the actor and records its object key in msds_link.
func (s *CertificateService) AttachSafetyDataSheet(ctx context.Context, certificateRef uint, actor domain.Actor, file io.Reader, size int64) (cert *domain.Certificate, err error) {
	start := time.Now()
	defer func() { observability.RecordCertificateOperation(ctx, "attach_sds", outcomeOf(err), time.Since(start)) }()

	if s.sds == nil {
		return nil, ErrStorageDisabled
	}
	cert, err = s.store.Certificates().FindByID(ctx, certificateRef)
	if err != nil {
		return nil, mapRepositoryError(err, fmt.Sprintf("certificate %d", certificateRef))
	}
	if cert.OwnerID != actor.UserID {
		return nil, fmt.Errorf("%w: only the submitter may attach a safety data sheet", ErrAuthorization)
	}
	if cert.Status != domain.CertificateStatusPending {
		return nil, fmt.Errorf("%w: certificate %d is %s", ErrInvalidTransition, certificateRef, cert.Status)
	}

	key, err := s.sds.Upload(ctx, cert.OwnerID, cert.CertificateID, file, size)
	if err != nil {
		if errors.Is(err, ErrFileTooBig) || errors.Is(err, ErrInvalidFileType) || errors.Is(err, ErrEmptyFile) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, err
	}
	if err = s.store.Certificates().SetMSDSLink(ctx, certificateRef, key); err != nil {
		if delErr := s.sds.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.WarnContext(ctx, "remove orphaned safety data sheet failed", "object_key", key, "error", delErr)
		}
		return nil, mapRepositoryError(err, fmt.Sprintf("certificate %d", certificateRef))
	}
	cert.MSDSLink = key
	s.invalidateLists(ctx)
	return cert, nil
}

func (s *CertificateService) ListAudit(ctx context.Context, certificateRef uint) ([]domain.AuditEvent, error) {
	if _, err := s.store.Certificates().FindByID(ctx, certificateRef); err != nil {
		return nil, mapRepositoryError(err, fmt.Sprintf("certificate %d", certificateRef))
	}
	events, err := s.store.Audit().ListByCertificate(ctx, certificateRef)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	return events, nil
}

func (s *CertificateService) afterMutation(ctx context.Context, event *domain.AuditEvent) {
	s.invalidateLists(ctx)
	if event != nil {
		s.publisher.Publish(ctx, audit.FromRecord(event))
	}
}

func (s *CertificateService) invalidateLists(ctx context.Context) {
	for _, ns := range []string{certificateListNamespace, certificateStatsNamespace} {
		if err := s.cache.InvalidateNamespace(ctx, ns); err != nil {
			observability.RecordListCacheEvent(ctx, ns, "invalidate_error")
			s.logger.WarnContext(ctx, "list cache invalidation failed", "namespace", ns, "error", err)
			continue
		}
		observability.RecordListCacheEvent(ctx, ns, "invalidate")
	}
}

// cachedLoad serves namespace/key from the list cache, collapsing concurrent
// misses for the same key and generation into one load. The generation is
// read before the load so that a fill racing an invalidation is dropped.
func cachedLoad[T any](ctx context.Context, s *CertificateService, namespace, key string, load func(context.Context) (T, error)) (T, error) {
	generation, genErr := s.cache.Generation(ctx, namespace)
	if genErr != nil {
		observability.RecordListCacheEvent(ctx, namespace, "error")
		s.logger.WarnContext(ctx, "list cache generation read failed", "namespace", namespace, "error", genErr)
		return load(ctx)
	}

	payload, ok, err := s.cache.Get(ctx, namespace, key)
	if err != nil {
		observability.RecordListCacheEvent(ctx, namespace, "error")
		s.logger.WarnContext(ctx, "list cache read failed", "namespace", namespace, "error", err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal(payload, &cached); err == nil {
			observability.RecordListCacheEvent(ctx, namespace, "hit")
			return cached, nil
		}
	}
	observability.RecordListCacheEvent(ctx, namespace, "miss")

	// Followers share the leader's result, so the leader's cancellation must
	// not fail them.
	loadCtx := context.WithoutCancel(ctx)
	flightKey := fmt.Sprintf("%s|%d|%s", namespace, generation, key)
	v, err, _ := s.loads.Do(flightKey, func() (any, error) {
		out, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(loadCtx, namespace, key, generation, payload, s.cacheTTL); err != nil {
				s.logger.WarnContext(ctx, "list cache write failed", "namespace", namespace, "error", err)
			}
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
