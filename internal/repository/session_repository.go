package repository

import (
	"context"
	"time"

	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID uint) (int64, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := translateError(r.db.WithContext(ctx).Create(s).Error)
	recordOp(ctx, "session", "create", err)
	return err
}

func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := translateError(r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error)
	recordOp(ctx, "session", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Revoke is idempotent.
func (r *GormSessionRepository) Revoke(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now().UTC()).Error
	recordOp(ctx, "session", "revoke", err)
	return err
}

func (r *GormSessionRepository) RevokeByUserID(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now().UTC())
	recordOp(ctx, "session", "revoke_by_user", res.Error)
	return res.RowsAffected, res.Error
}

func (r *GormSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&domain.Session{})
	recordOp(ctx, "session", "cleanup_expired", res.Error)
	return res.RowsAffected, res.Error
}
