package observability

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const requestAuditVersion = 1

// RequestAuditInput describes a security-relevant HTTP event such as a login attempt.
type RequestAuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

type RequestAuditEvent struct {
	EventVersion int    `json:"event_version"`
	EventName    string `json:"event_name"`
	ActorUserID  string `json:"actor_user_id"`
	ActorIP      string `json:"actor_ip"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	RequestID    string `json:"request_id"`
	TS           string `json:"ts"`
}

func BuildRequestAuditEvent(r *http.Request, in RequestAuditInput) RequestAuditEvent {
	actor := in.ActorUserID
	if actor == "" {
		actor = "anonymous"
	}
	return RequestAuditEvent{
		EventVersion: requestAuditVersion,
		EventName:    in.EventName,
		ActorUserID:  actor,
		ActorIP:      clientIP(r),
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       in.Reason,
		RequestID:    r.Header.Get("X-Request-Id"),
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
}

func (e RequestAuditEvent) Validate() error {
	var missing []string
	if e.EventName == "" {
		missing = append(missing, "event_name")
	}
	if e.Action == "" {
		missing = append(missing, "action")
	}
	if e.Outcome == "" {
		missing = append(missing, "outcome")
	}
	if e.TS == "" {
		missing = append(missing, "ts")
	}
	if len(missing) > 0 {
		return errors.New("audit event missing " + strings.Join(missing, ", "))
	}
	return nil
}

// EmitRequestAudit writes the event to the default logger under the "audit" message.
func EmitRequestAudit(r *http.Request, in RequestAuditInput) {
	ev := BuildRequestAuditEvent(r, in)
	if err := ev.Validate(); err != nil {
		slog.WarnContext(r.Context(), "audit event dropped", "error", err)
		return
	}
	slog.InfoContext(r.Context(), "audit",
		"event_version", ev.EventVersion,
		"event_name", ev.EventName,
		"actor_user_id", ev.ActorUserID,
		"actor_ip", ev.ActorIP,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
	)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
