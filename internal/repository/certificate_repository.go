package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/gorm"
)

type CertificateFilter struct {
	Status  domain.CertificateStatus
	OwnerID uint
	// Search matches product name, material type or owner email, case-insensitively.
	Search string
}

// Decision is the terminal state a pending certificate moves to.
type Decision struct {
	Status    domain.CertificateStatus
	DecidedBy uint
	At        time.Time
	Reason    string
}

type CertificateRepository interface {
	Create(ctx context.Context, cert *domain.Certificate) error
	FindByID(ctx context.Context, id uint) (*domain.Certificate, error)
	FindByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error)
	ListPaged(ctx context.Context, filter CertificateFilter, req PageRequest) (PageResult[domain.Certificate], error)
	ListPending(ctx context.Context, limit int) ([]domain.Certificate, error)
	CountByStatus(ctx context.Context) (map[domain.CertificateStatus]int64, error)
	// Transition moves a pending certificate to a terminal state. It returns
	// ErrNotPending when the row exists but has already been decided.
	Transition(ctx context.Context, id uint, d Decision) (*domain.Certificate, error)
	SetMSDSLink(ctx context.Context, id uint, link string) error
}

type GormCertificateRepository struct{ db *gorm.DB }

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &GormCertificateRepository{db: db}
}

func (r *GormCertificateRepository) Create(ctx context.Context, cert *domain.Certificate) error {
	err := translateError(r.db.WithContext(ctx).Omit("Owner").Create(cert).Error)
	recordOp(ctx, "certificate", "create", err)
	return err
}

func (r *GormCertificateRepository) FindByID(ctx context.Context, id uint) (*domain.Certificate, error) {
	var c domain.Certificate
	err := translateError(r.db.WithContext(ctx).Preload("Owner").First(&c, id).Error)
	recordOp(ctx, "certificate", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCertificateRepository) FindByCertificateID(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	var c domain.Certificate
	err := translateError(r.db.WithContext(ctx).Preload("Owner").
		Where("certificate_id = ?", certificateID).First(&c).Error)
	recordOp(ctx, "certificate", "find_by_certificate_id", err)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCertificateRepository) ListPaged(ctx context.Context, filter CertificateFilter, req PageRequest) (PageResult[domain.Certificate], error) {
	req = NormalizePageRequest(req)
	base := r.db.WithContext(ctx).Model(&domain.Certificate{})
	if filter.Status != "" {
		base = base.Where("certificates.status = ?", filter.Status)
	}
	if filter.OwnerID != 0 {
		base = base.Where("certificates.owner_id = ?", filter.OwnerID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		base = base.Joins("LEFT JOIN users ON users.id = certificates.owner_id").
			Where("(LOWER(certificates.product_name) LIKE ? ESCAPE '\\' OR LOWER(certificates.material_type) LIKE ? ESCAPE '\\' OR LOWER(users.email) LIKE ? ESCAPE '\\')",
				pattern, pattern, pattern)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		recordOp(ctx, "certificate", "list_paged", err)
		return PageResult[domain.Certificate]{}, err
	}
	var certs []domain.Certificate
	err := base.Select("certificates.*").Preload("Owner").
		Order("certificates.created_at desc").Order("certificates.id desc").
		Offset(req.offset()).Limit(req.PageSize).
		Find(&certs).Error
	recordOp(ctx, "certificate", "list_paged", err)
	if err != nil {
		return PageResult[domain.Certificate]{}, err
	}
	return newPageResult(req, total, certs), nil
}

func (r *GormCertificateRepository) ListPending(ctx context.Context, limit int) ([]domain.Certificate, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	var certs []domain.Certificate
	err := r.db.WithContext(ctx).Preload("Owner").
		Where("status = ?", domain.CertificateStatusPending).
		Order("created_at asc").Order("id asc").
		Limit(limit).Find(&certs).Error
	recordOp(ctx, "certificate", "list_pending", err)
	return certs, err
}

func (r *GormCertificateRepository) CountByStatus(ctx context.Context) (map[domain.CertificateStatus]int64, error) {
	var rows []struct {
		Status domain.CertificateStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Certificate{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error
	recordOp(ctx, "certificate", "count_by_status", err)
	if err != nil {
		return nil, err
	}
	out := map[domain.CertificateStatus]int64{
		domain.CertificateStatusPending:  0,
		domain.CertificateStatusApproved: 0,
		domain.CertificateStatusRejected: 0,
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *GormCertificateRepository) Transition(ctx context.Context, id uint, d Decision) (*domain.Certificate, error) {
	updates := map[string]any{
		"status":        d.Status,
		"decided_by_id": d.DecidedBy,
		"updated_at":    d.At,
	}
	switch d.Status {
	case domain.CertificateStatusApproved:
		updates["approved_at"] = d.At
	case domain.CertificateStatusRejected:
		updates["rejected_at"] = d.At
		updates["rejection_reason"] = d.Reason
	default:
		return nil, errors.New("transition target must be terminal")
	}

	// Conditional on the current status so concurrent deciders cannot both win.
	res := r.db.WithContext(ctx).Model(&domain.Certificate{}).
		Where("id = ? AND status = ?", id, domain.CertificateStatusPending).
		Updates(updates)
	if res.Error != nil {
		recordOp(ctx, "certificate", "transition", res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		err := ErrNotPending
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			err = findErr
		}
		recordOp(ctx, "certificate", "transition", err)
		return nil, err
	}
	recordOp(ctx, "certificate", "transition", nil)
	return r.FindByID(ctx, id)
}

func (r *GormCertificateRepository) SetMSDSLink(ctx context.Context, id uint, link string) error {
	res := r.db.WithContext(ctx).Model(&domain.Certificate{}).
		Where("id = ? AND status = ?", id, domain.CertificateStatusPending).
		Update("msds_link", link)
	if res.Error != nil {
		recordOp(ctx, "certificate", "set_msds_link", res.Error)
		return res.Error
	}
	var err error
	if res.RowsAffected == 0 {
		err = ErrNotPending
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			err = findErr
		}
	}
	recordOp(ctx, "certificate", "set_msds_link", err)
	return err
}
