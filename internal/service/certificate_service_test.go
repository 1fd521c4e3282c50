package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/repository"
)

func TestSubmitCreatesPendingCertificateWithAudit(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)

	cert := fx.submit(t, owner, "Nano Silver Gel")
	if cert.Status != domain.CertificateStatusPending {
		t.Fatalf("expected pending, got %s", cert.Status)
	}
	if _, err := uuid.Parse(cert.CertificateID); err != nil {
		t.Fatalf("expected generated uuid certificate id, got %q", cert.CertificateID)
	}
	if cert.ApprovedAt != nil || cert.RejectedAt != nil || cert.DecidedByID != nil {
		t.Fatalf("expected no decision fields on new certificate: %+v", cert)
	}
	if cert.Owner == nil || cert.Owner.Email != "owner@example.com" {
		t.Fatalf("expected owner to be attached, got %+v", cert.Owner)
	}

	events, err := fx.certs.ListAudit(context.Background(), cert.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 1 || events[0].Action != domain.AuditActionSubmit || events[0].ActorID != owner.UserID {
		t.Fatalf("unexpected persisted audit events: %+v", events)
	}
	published := fx.sink.snapshot()
	if len(published) != 1 || published[0].CertificateID != cert.CertificateID {
		t.Fatalf("unexpected published events: %+v", published)
	}
}

func TestSubmitValidation(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	ctx := context.Background()

	cases := []struct {
		name    string
		ownerID uint
		in      SubmitInput
	}{
		{"missing product name", owner.UserID, SubmitInput{ProductName: "  ", MaterialType: "Ag", Supplier: "S"}},
		{"missing material type", owner.UserID, SubmitInput{ProductName: "P", Supplier: "S"}},
		{"missing supplier", owner.UserID, SubmitInput{ProductName: "P", MaterialType: "Ag"}},
		{"product name too long", owner.UserID, SubmitInput{ProductName: strings.Repeat("p", 256), MaterialType: "Ag", Supplier: "S"}},
		{"concentration too long", owner.UserID, SubmitInput{ProductName: "P", MaterialType: "Ag", Supplier: "S", Concentration: strings.Repeat("1", 101)}},
		{"unknown owner", 9999, SubmitInput{ProductName: "P", MaterialType: "Ag", Supplier: "S"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.certs.Submit(ctx, tc.ownerID, tc.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(fx.sink.snapshot()) != 0 {
		t.Fatal("expected no audit events for rejected submissions")
	}
}

func TestSubmitCertificateIDCollisions(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	ctx := context.Background()

	first, err := fx.certs.Submit(ctx, owner.UserID, SubmitInput{CertificateID: "NT-0001", ProductName: "A", MaterialType: "Ag", Supplier: "S"})
	if err != nil {
		t.Fatalf("submit with explicit id: %v", err)
	}

	t.Run("caller supplied duplicate conflicts", func(t *testing.T) {
		_, err := fx.certs.Submit(ctx, owner.UserID, SubmitInput{CertificateID: first.CertificateID, ProductName: "B", MaterialType: "Ag", Supplier: "S"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("generated collision regenerates once", func(t *testing.T) {
		ids := []string{first.CertificateID, "NT-0002"}
		fx.certs.newID = func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}
		cert, err := fx.certs.Submit(ctx, owner.UserID, SubmitInput{ProductName: "C", MaterialType: "Ag", Supplier: "S"})
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if cert.CertificateID != "NT-0002" {
			t.Fatalf("expected regenerated id NT-0002, got %s", cert.CertificateID)
		}
	})

	t.Run("second generated collision conflicts", func(t *testing.T) {
		fx.certs.newID = func() string { return first.CertificateID }
		_, err := fx.certs.Submit(ctx, owner.UserID, SubmitInput{ProductName: "D", MaterialType: "Ag", Supplier: "S"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestApproveRequiresAdminBeforeLookup(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	cert := fx.submit(t, owner, "Gel")
	ctx := context.Background()

	if _, err := fx.certs.Approve(ctx, cert.ID, owner); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization for non-admin, got %v", err)
	}
	if _, err := fx.certs.Reject(ctx, 424242, owner, "no"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization before not-found, got %v", err)
	}
	got, err := fx.certs.Get(ctx, cert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.CertificateStatusPending {
		t.Fatalf("expected certificate to stay pending, got %s", got.Status)
	}
}

func TestApproveAndRejectTransitions(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	ctx := context.Background()
	decidedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	fx.certs.now = func() time.Time { return decidedAt }

	if _, err := fx.certs.Approve(ctx, 9999, admin); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown certificate, got %v", err)
	}

	approved := fx.submit(t, owner, "Approved product")
	got, err := fx.certs.Approve(ctx, approved.ID, admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != domain.CertificateStatusApproved || got.ApprovedAt == nil || !got.ApprovedAt.Equal(decidedAt) {
		t.Fatalf("unexpected approved certificate: %+v", got)
	}
	if got.RejectedAt != nil || got.DecidedByID == nil || *got.DecidedByID != admin.UserID {
		t.Fatalf("unexpected decision fields: %+v", got)
	}
	if _, err := fx.certs.Reject(ctx, approved.ID, admin, "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition rejecting approved certificate, got %v", err)
	}
	if _, err := fx.certs.Approve(ctx, approved.ID, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition approving twice, got %v", err)
	}

	rejected := fx.submit(t, owner, "Rejected product")
	got, err = fx.certs.Reject(ctx, rejected.ID, admin, "  missing particle size data  ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.CertificateStatusRejected || got.RejectedAt == nil || got.ApprovedAt != nil {
		t.Fatalf("unexpected rejected certificate: %+v", got)
	}
	if got.RejectionReason != "missing particle size data" {
		t.Fatalf("expected trimmed reason, got %q", got.RejectionReason)
	}

	events, err := fx.certs.ListAudit(ctx, rejected.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 2 || events[1].Action != domain.AuditActionReject || events[1].Reason != "missing particle size data" {
		t.Fatalf("unexpected audit trail: %+v", events)
	}
	published := fx.sink.snapshot()
	last := published[len(published)-1]
	if last.Action != domain.AuditActionReject || last.ActorEmail != "admin@example.com" || !last.Timestamp.Equal(decidedAt) {
		t.Fatalf("unexpected published reject event: %+v", last)
	}
}

func TestRejectTruncatesReasonByRunes(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Gel")

	reason := strings.Repeat("ü", 1200)
	got, err := fx.certs.Reject(context.Background(), cert.ID, admin, reason)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if n := utf8.RuneCountInString(got.RejectionReason); n != 1000 {
		t.Fatalf("expected 1000 runes, got %d", n)
	}
	if !utf8.ValidString(got.RejectionReason) {
		t.Fatal("expected truncation on a rune boundary")
	}

	empty := fx.submit(t, owner, "Other")
	got, err = fx.certs.Reject(context.Background(), empty.ID, admin, "")
	if err != nil {
		t.Fatalf("reject with empty reason: %v", err)
	}
	if got.RejectionReason != "" {
		t.Fatalf("expected empty reason, got %q", got.RejectionReason)
	}
}

func TestConcurrentDecisionsHaveSingleWinner(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Contested")
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = fx.certs.Approve(ctx, cert.ID, admin)
			} else {
				_, err = fx.certs.Reject(ctx, cert.ID, admin, "race")
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidTransition):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || invalid != workers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d invalid=%d", wins, invalid)
	}
	events, err := fx.certs.ListAudit(ctx, cert.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected submit plus one decision in audit, got %d", len(events))
	}
}

type failingAuditStore struct {
	repository.Store
}

func (s failingAuditStore) Audit() repository.AuditRepository { return failingAuditRepository{} }

func (s failingAuditStore) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(failingAuditStore{Store: tx})
	})
}

type failingAuditRepository struct{}

func (failingAuditRepository) Append(context.Context, *domain.AuditEvent) error {
	return errors.New("audit table unavailable")
}

func (failingAuditRepository) ListByCertificate(context.Context, uint) ([]domain.AuditEvent, error) {
	return nil, nil
}

func TestDecisionRollsBackWhenAuditAppendFails(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Gel")
	ctx := context.Background()

	fx.certs.store = failingAuditStore{Store: fx.store}
	if _, err := fx.certs.Approve(ctx, cert.ID, admin); err == nil {
		t.Fatal("expected approve to fail when audit cannot be written")
	}
	fx.certs.store = fx.store

	got, err := fx.certs.Get(ctx, cert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.CertificateStatusPending || got.ApprovedAt != nil {
		t.Fatalf("expected mutation to roll back, got %+v", got)
	}
}

func TestSinkFailureDoesNotFailMutation(t *testing.T) {
	fx := newServiceFixture(t)
	fx.sink.err = errors.New("sink down")
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Gel")

	if _, err := fx.certs.Approve(context.Background(), cert.ID, admin); err != nil {
		t.Fatalf("expected approve to succeed despite sink failure, got %v", err)
	}
}

func TestGetForActorHidesOtherOwners(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	other := fx.user(t, "other@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Gel")
	ctx := context.Background()

	if _, err := fx.certs.GetForActor(ctx, cert.ID, other); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if _, err := fx.certs.GetForActor(ctx, cert.ID, owner); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := fx.certs.GetForActor(ctx, cert.ID, admin); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}

func TestListFiltersAndCacheInvalidation(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	ctx := context.Background()
	first := fx.submit(t, owner, "Silver Gel")
	fx.submit(t, owner, "Zinc Cream")

	if _, err := fx.certs.List(ctx, ListFilter{Status: "archived"}, 1, 20); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}

	pending, err := fx.certs.List(ctx, ListFilter{Status: "pending"}, 0, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if pending.Total != 2 || pending.Page != repository.DefaultPage || pending.PageSize != repository.DefaultPageSize {
		t.Fatalf("unexpected pending page: %+v", pending)
	}

	if _, err := fx.certs.Approve(ctx, first.ID, admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	pending, err = fx.certs.List(ctx, ListFilter{Status: "pending"}, 1, 20)
	if err != nil {
		t.Fatalf("list pending after approve: %v", err)
	}
	if pending.Total != 1 {
		t.Fatalf("expected cache to be invalidated by approve, got total=%d", pending.Total)
	}

	search, err := fx.certs.List(ctx, ListFilter{Search: "ZINC"}, 1, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if search.Total != 1 || search.Items[0].ProductName != "Zinc Cream" {
		t.Fatalf("unexpected search result: %+v", search)
	}

	stats, err := fx.certs.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.CertificateStats{Total: 2, Pending: 1, Approved: 1, Rejected: 0, Users: 2}
	if stats != want {
		t.Fatalf("expected stats %+v, got %+v", want, stats)
	}
}

func TestPendingQueueOldestFirst(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Hour)
		fx.certs.now = func() time.Time { return at }
		fx.submit(t, owner, name)
	}

	queue, err := fx.certs.PendingQueue(context.Background(), 2)
	if err != nil {
		t.Fatalf("pending queue: %v", err)
	}
	if len(queue) != 2 || queue[0].ProductName != "first" || queue[1].ProductName != "second" {
		t.Fatalf("unexpected queue order: %+v", queue)
	}
}

func TestVerifyReportsStoredStatus(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	ctx := context.Background()
	pending := fx.submit(t, owner, "Pending")
	approved := fx.submit(t, owner, "Approved")
	if _, err := fx.certs.Approve(ctx, approved.ID, admin); err != nil {
		t.Fatalf("approve: %v", err)
	}

	v, err := fx.certs.Verify(ctx, approved.CertificateID)
	if err != nil {
		t.Fatalf("verify approved: %v", err)
	}
	if !v.Valid || v.Status != domain.CertificateStatusApproved || v.ApprovedAt == nil {
		t.Fatalf("unexpected verification: %+v", v)
	}
	v, err = fx.certs.Verify(ctx, pending.CertificateID)
	if err != nil {
		t.Fatalf("verify pending: %v", err)
	}
	if v.Valid || v.Status != domain.CertificateStatusPending {
		t.Fatalf("expected pending certificate to be invalid, got %+v", v)
	}
	if _, err := fx.certs.Verify(ctx, "NT-does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.certs.Verify(ctx, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank id, got %v", err)
	}
}

func TestAttachSafetyDataSheet(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	other := fx.user(t, "other@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	ctx := context.Background()
	cert := fx.submit(t, owner, "Gel")

	if _, err := fx.certs.AttachSafetyDataSheet(ctx, cert.ID, other, strings.NewReader("%PDF"), 4); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization for non-owner, got %v", err)
	}
	if _, err := fx.certs.AttachSafetyDataSheet(ctx, 9999, owner, strings.NewReader("%PDF"), 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := fx.certs.AttachSafetyDataSheet(ctx, cert.ID, owner, strings.NewReader("%PDF"), 4)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.MSDSLink != fx.sds.uploads[0] {
		t.Fatalf("expected msds link %q, got %q", fx.sds.uploads[0], got.MSDSLink)
	}
	stored, err := fx.certs.Get(ctx, cert.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.MSDSLink != got.MSDSLink {
		t.Fatalf("expected persisted msds link, got %q", stored.MSDSLink)
	}

	fx.sds.err = ErrInvalidFileType
	if _, err := fx.certs.AttachSafetyDataSheet(ctx, cert.ID, owner, strings.NewReader("x"), 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for rejected file, got %v", err)
	}
	fx.sds.err = nil

	if _, err := fx.certs.Approve(ctx, cert.ID, admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fx.certs.AttachSafetyDataSheet(ctx, cert.ID, owner, strings.NewReader("%PDF"), 4); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after approval, got %v", err)
	}

	fx.certs.sds = nil
	if _, err := fx.certs.AttachSafetyDataSheet(ctx, cert.ID, owner, strings.NewReader("%PDF"), 4); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected ErrStorageDisabled, got %v", err)
	}
}

// gatedCertificateStore pauses the first ListPaged after it has read rows,
// until release is closed.
type gatedCertificateStore struct {
	repository.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (s *gatedCertificateStore) Certificates() repository.CertificateRepository {
	return &gatedCertificateRepository{CertificateRepository: s.Store.Certificates(), gate: s}
}

type gatedCertificateRepository struct {
	repository.CertificateRepository
	gate *gatedCertificateStore
}

func (r *gatedCertificateRepository) ListPaged(ctx context.Context, filter repository.CertificateFilter, req repository.PageRequest) (repository.PageResult[domain.Certificate], error) {
	res, err := r.CertificateRepository.ListPaged(ctx, filter, req)
	r.gate.once.Do(func() {
		close(r.gate.read)
		<-r.gate.release
	})
	return res, err
}

func TestListLoadRacingApproveDoesNotRepopulateCache(t *testing.T) {
	fx := newServiceFixture(t)
	owner := fx.user(t, "owner@example.com", false)
	admin := fx.user(t, "admin@example.com", true)
	cert := fx.submit(t, owner, "Silver Gel")
	ctx := context.Background()

	gate := &gatedCertificateStore{Store: fx.store, read: make(chan struct{}), release: make(chan struct{})}
	fx.certs.store = gate

	loaded := make(chan repository.PageResult[domain.Certificate], 1)
	go func() {
		res, err := fx.certs.List(ctx, ListFilter{Status: "pending"}, 1, 20)
		if err != nil {
			t.Errorf("racing list: %v", err)
		}
		loaded <- res
	}()

	<-gate.read
	if _, err := fx.certs.Approve(ctx, cert.ID, admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	close(gate.release)
	if stale := <-loaded; len(stale.Items) != 1 {
		t.Fatalf("expected racing load to see the pre-approve row, got %+v", stale)
	}

	pending, err := fx.certs.List(ctx, ListFilter{Status: "pending"}, 1, 20)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if pending.Total != 0 || len(pending.Items) != 0 {
		t.Fatalf("expected no pending certificates after approve, got %+v", pending)
	}
}

func TestStatsUserCountIsLive(t *testing.T) {
	fx := newServiceFixture(t)
	fx.user(t, "owner@example.com", false)
	ctx := context.Background()

	if stats, err := fx.certs.Stats(ctx); err != nil || stats.Users != 1 {
		t.Fatalf("expected 1 user, got %+v err=%v", stats, err)
	}
	if _, err := fx.auth.Register(ctx, "second@example.com", "Valid#Pass1234", "Valid#Pass1234"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if stats, err := fx.certs.Stats(ctx); err != nil || stats.Users != 2 {
		t.Fatalf("expected 2 users after register, got %+v err=%v", stats, err)
	}
}

func TestCachedLoadIgnoresLeaderCancellation(t *testing.T) {
	fx := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := cachedLoad(ctx, fx.certs, certificateStatsNamespace, "cancel", func(loadCtx context.Context) (int, error) {
		if err := loadCtx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected load to run detached from caller cancellation, got %d err=%v", got, err)
	}
}
