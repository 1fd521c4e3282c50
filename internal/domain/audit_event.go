package domain

import "time"

type AuditAction string

const (
	AuditActionSubmit  AuditAction = "submit"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
)

type AuditEvent struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Action         AuditAction `gorm:"size:32;not null" json:"action"`
	ActorID        uint        `gorm:"not null;index" json:"actor_id"`
	ActorEmail     string      `gorm:"size:120" json:"actor_email"`
	CertificateRef uint        `gorm:"not null;index:idx_audit_events_certificate" json:"certificate_ref"`
	CertificateID  string      `gorm:"size:64;not null" json:"certificate_id"`
	Reason         string      `gorm:"size:1000" json:"reason,omitempty"`
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`
}
