package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nanotrace/certification-backend/internal/http/middleware"
	"github.com/nanotrace/certification-backend/internal/http/response"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

type CertificateHandler struct {
	certSvc service.CertificateServiceInterface
}

func NewCertificateHandler(certSvc service.CertificateServiceInterface) *CertificateHandler {
	return &CertificateHandler{certSvc: certSvc}
}

type submitRequest struct {
	CertificateID string `json:"certificate_id"`
	ProductName   string `json:"product_name"`
	MaterialType  string `json:"material_type"`
	Supplier      string `json:"supplier"`
	Concentration string `json:"concentration"`
	ParticleSize  string `json:"particle_size"`
	MSDSLink      string `json:"msds_link"`
}

func (h *CertificateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cert, err := h.certSvc.Submit(r.Context(), actor.UserID, service.SubmitInput{
		CertificateID: req.CertificateID,
		ProductName:   req.ProductName,
		MaterialType:  req.MaterialType,
		Supplier:      req.Supplier,
		Concentration: req.Concentration,
		ParticleSize:  req.ParticleSize,
		MSDSLink:      req.MSDSLink,
	})
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	response.JSON(w, r, http.StatusCreated, cert)
}

// ListOwn pages through the caller's own certificates.
func (h *CertificateHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter := service.ListFilter{
		Status:  strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
		OwnerID: actor.UserID,
		Search:  strings.TrimSpace(r.URL.Query().Get("search")),
	}
	page, err := h.certSvc.List(r.Context(), filter, pageReq.Page, pageReq.PageSize)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	response.JSON(w, r, http.StatusOK, page)
}

func (h *CertificateHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	cert, err := h.certSvc.GetForActor(r.Context(), id, actor)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	response.JSON(w, r, http.StatusOK, cert)
}

// UploadSDS accepts a multipart form with the document in the "file" field.
func (h *CertificateHandler) UploadSDS(w http.ResponseWriter, r *http.Request) {
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
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "upload too large", nil)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "file field is required", nil)
		return
	}
	defer file.Close()

	cert, err := h.certSvc.AttachSafetyDataSheet(r.Context(), id, actor, file, header.Size)
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	observability.EmitRequestAudit(r, observability.RequestAuditInput{
		EventName:   "certificate.sds.upload",
		ActorUserID: strconv.FormatUint(uint64(actor.UserID), 10),
		TargetType:  "certificate",
		TargetID:    cert.CertificateID,
		Action:      "upload",
		Outcome:     "success",
	})
	response.JSON(w, r, http.StatusOK, cert)
}

// Verify is public and reports the stored status for a certificate id.
func (h *CertificateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.certSvc.Verify(r.Context(), chi.URLParam(r, "certificate_id"))
	if err != nil {
		writeServiceError(w, r, err, false)
		return
	}
	response.JSON(w, r, http.StatusOK, v)
}
