package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle.
// Repositories obtained from the Store passed to WithinTransaction's callback
// run inside that transaction.
type Store interface {
	Users() UserRepository
	Certificates() CertificateRepository
	Audit() AuditRepository
	Sessions() SessionRepository
	// WithinTransaction commits when fn returns nil and rolls back on error or panic.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository               { return NewUserRepository(s.db) }
func (s *GormStore) Certificates() CertificateRepository { return NewCertificateRepository(s.db) }
func (s *GormStore) Audit() AuditRepository              { return NewAuditRepository(s.db) }
func (s *GormStore) Sessions() SessionRepository         { return NewSessionRepository(s.db) }

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
