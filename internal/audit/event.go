package audit

import (
	"time"

	"github.com/nanotrace/certification-backend/internal/domain"
)

// Event is the wire form of a lifecycle audit record published to sinks.
type Event struct {
	ID             uint               `json:"id"`
	Action         domain.AuditAction `json:"action"`
	ActorID        uint               `json:"actor_id"`
	ActorEmail     string             `json:"actor_email,omitempty"`
	CertificateRef uint               `json:"certificate_ref"`
	CertificateID  string             `json:"certificate_id"`
	Reason         string             `json:"reason,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

func FromRecord(r *domain.AuditEvent) Event {
	return Event{
		ID:             r.ID,
		Action:         r.Action,
		ActorID:        r.ActorID,
		ActorEmail:     r.ActorEmail,
		CertificateRef: r.CertificateRef,
		CertificateID:  r.CertificateID,
		Reason:         r.Reason,
		Timestamp:      r.CreatedAt.UTC(),
	}
}
