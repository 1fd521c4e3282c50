package repository

import (
	"context"

	"github.com/nanotrace/certification-backend/internal/domain"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ListPaged(ctx context.Context, search string, req PageRequest) (PageResult[domain.User], error)
	Count(ctx context.Context) (int64, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := translateError(r.db.WithContext(ctx).Create(user).Error)
	recordOp(ctx, "user", "create", err)
	return err
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := translateError(r.db.WithContext(ctx).First(&u, id).Error)
	recordOp(ctx, "user", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail matches the stored address exactly.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := translateError(r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error)
	recordOp(ctx, "user", "find_by_email", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) ListPaged(ctx context.Context, search string, req PageRequest) (PageResult[domain.User], error) {
	req = NormalizePageRequest(req)
	base := r.db.WithContext(ctx).Model(&domain.User{})
	if search != "" {
		base = base.Where("LOWER(email) LIKE ? ESCAPE '\\'", likePattern(search))
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		recordOp(ctx, "user", "list_paged", err)
		return PageResult[domain.User]{}, err
	}
	var users []domain.User
	if err := base.Order("created_at desc").Order("id desc").Offset(req.offset()).Limit(req.PageSize).Find(&users).Error; err != nil {
		recordOp(ctx, "user", "list_paged", err)
		return PageResult[domain.User]{}, err
	}
	recordOp(ctx, "user", "list_paged", nil)
	return newPageResult(req, total, users), nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, err
}
