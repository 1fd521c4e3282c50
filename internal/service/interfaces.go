package service

import (
	"context"
	"io"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/repository"
)

//go:generate mockgen -source=interfaces.go -destination=gomock/mock_interfaces.go -package=servicegomock

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, confirm string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error)
	ResolveSession(ctx context.Context, token string) (domain.Actor, error)
	Logout(ctx context.Context, sessionID string) error
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	ListUsers(ctx context.Context, search string, page, pageSize int) (repository.PageResult[domain.User], error)
}

type CertificateServiceInterface interface {
	Submit(ctx context.Context, ownerID uint, in SubmitInput) (*domain.Certificate, error)
	Approve(ctx context.Context, certificateRef uint, actor domain.Actor) (*domain.Certificate, error)
	Reject(ctx context.Context, certificateRef uint, actor domain.Actor, reason string) (*domain.Certificate, error)
	Get(ctx context.Context, certificateRef uint) (*domain.Certificate, error)
	GetForActor(ctx context.Context, certificateRef uint, actor domain.Actor) (*domain.Certificate, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) (repository.PageResult[domain.Certificate], error)
	Stats(ctx context.Context) (domain.CertificateStats, error)
	PendingQueue(ctx context.Context, limit int) ([]domain.Certificate, error)
	Verify(ctx context.Context, certificateID string) (*Verification, error)
	AttachSafetyDataSheet(ctx context.Context, certificateRef uint, actor domain.Actor, file io.Reader, size int64) (*domain.Certificate, error)
	ListAudit(ctx context.Context, certificateRef uint) ([]domain.AuditEvent, error)
}

var (
	_ AuthServiceInterface        = (*AuthService)(nil)
	_ CertificateServiceInterface = (*CertificateService)(nil)
)
