package domain

import "time"

type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "pending"
	CertificateStatusApproved CertificateStatus = "approved"
	CertificateStatusRejected CertificateStatus = "rejected"
)

func (s CertificateStatus) Valid() bool {
	switch s {
	case CertificateStatusPending, CertificateStatusApproved, CertificateStatusRejected:
		return true
	default:
		return false
	}
}

func (s CertificateStatus) Terminal() bool {
	return s == CertificateStatusApproved || s == CertificateStatusRejected
}

type Certificate struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	CertificateID   string            `gorm:"uniqueIndex;size:64;not null" json:"certificate_id"`
	ProductName     string            `gorm:"size:255;not null" json:"product_name"`
	MaterialType    string            `gorm:"size:255;not null" json:"material_type"`
	Supplier        string            `gorm:"size:255;not null" json:"supplier"`
	Concentration   string            `gorm:"size:100" json:"concentration,omitempty"`
	ParticleSize    string            `gorm:"size:100" json:"particle_size,omitempty"`
	MSDSLink        string            `gorm:"type:text" json:"msds_link,omitempty"`
	Status          CertificateStatus `gorm:"size:16;not null;default:pending;index:idx_certificates_status" json:"status"`
	RejectionReason string            `gorm:"size:1000" json:"rejection_reason,omitempty"`
	DecidedByID     *uint             `json:"decided_by_id,omitempty"`
	OwnerID         uint              `gorm:"not null;index:idx_certificates_owner" json:"owner_id"`
	Owner           *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt       time.Time         `gorm:"index:idx_certificates_created_at" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
}

// CertificateStats holds dashboard counters.
type CertificateStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Users    int64 `json:"users"`
}
