package repository

import (
	"context"

	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/gorm"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, ev *domain.AuditEvent) error
	ListByCertificate(ctx context.Context, certificateRef uint) ([]domain.AuditEvent, error)
}

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &GormAuditRepository{db: db} }

func (r *GormAuditRepository) Append(ctx context.Context, ev *domain.AuditEvent) error {
	err := r.db.WithContext(ctx).Create(ev).Error
	recordOp(ctx, "audit", "append", err)
	return err
}

func (r *GormAuditRepository) ListByCertificate(ctx context.Context, certificateRef uint) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := r.db.WithContext(ctx).Where("certificate_ref = ?", certificateRef).
		Order("created_at asc").Order("id asc").Find(&events).Error
	recordOp(ctx, "audit", "list_by_certificate", err)
	return events, err
}
