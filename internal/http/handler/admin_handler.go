package handler

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/http/response"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/repository"
	"github.com/nanotrace/certification-backend/internal/service"
)

const pendingQueueLimit = 50

type AdminHandler struct {
	certSvc       service.CertificateServiceInterface
	authSvc       service.AuthServiceInterface
	hideForbidden bool
}

func NewAdminHandler(certSvc service.CertificateServiceInterface, authSvc service.AuthServiceInterface, hideForbidden bool) *AdminHandler {
	return &AdminHandler{certSvc: certSvc, authSvc: authSvc, hideForbidden: hideForbidden}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ListCertificates returns one page of certificates alongside dashboard
// counters.
func (h *AdminHandler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter := service.ListFilter{
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	var (
		page  repository.PageResult[domain.Certificate]
		stats domain.CertificateStats
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page, err = h.certSvc.List(ctx, filter, pageReq.Page, pageReq.PageSize)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = h.certSvc.Stats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"items": page.Items,
		"pagination": map[string]any{
			"page":        page.Page,
			"page_size":   page.PageSize,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
		"stats": stats,
	})
}

func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.certSvc.PendingQueue(r.Context(), pendingQueueLimit)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": items})
}

func (h *AdminHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	cert, err := h.certSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, cert)
}

func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	events, err := h.certSvc.ListAudit(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": events})
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	cert, err := h.certSvc.Approve(r.Context(), id, actor)
	h.auditDecision(r, actor, id, "approve", err)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, cert)
}

// Reject accepts an optional JSON body carrying the reason.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var req rejectRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	cert, err := h.certSvc.Reject(r.Context(), id, actor, req.Reason)
	h.auditDecision(r, actor, id, "reject", err)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, cert)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	page, err := h.authSvc.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), pageReq.Page, pageReq.PageSize)
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

type userDetailResponse struct {
	User         *domain.User                              `json:"user"`
	Certificates repository.PageResult[domain.Certificate] `json:"certificates"`
}

// UserDetail returns one account together with a page of the certificates it
// submitted.
func (h *AdminHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	var out userDetailResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		out.User, err = h.authSvc.GetUser(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		out.Certificates, err = h.certSvc.List(ctx, service.ListFilter{OwnerID: id}, pageReq.Page, pageReq.PageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.certSvc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.hideForbidden)
		return
	}
	response.JSON(w, r, http.StatusOK, stats)
}

func (h *AdminHandler) auditDecision(r *http.Request, actor domain.Actor, id uint, action string, err error) {
	outcome := "success"
	reason := ""
	if err != nil {
		outcome = "failure"
		reason = err.Error()
	}
	observability.EmitRequestAudit(r, observability.RequestAuditInput{
		EventName:   "admin.certificate." + action,
		ActorUserID: strconv.FormatUint(uint64(actor.UserID), 10),
		TargetType:  "certificate",
		TargetID:    strconv.FormatUint(uint64(id), 10),
		Action:      action,
		Outcome:     outcome,
		Reason:      reason,
	})
}
