package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kmorisaki/billing-recon/internal/audit"
	"github.com/kmorisaki/billing-recon/internal/excel"
	"github.com/kmorisaki/billing-recon/internal/http/middleware"
	"github.com/kmorisaki/billing-recon/internal/pdf"
	"github.com/kmorisaki/billing-recon/internal/service"
)

type Handler struct {
	recon *service.ReconService
	excel *excel.Generator
	pdf   *pdf.Generator
	log   zerolog.Logger
}

func NewHandler(recon *service.ReconService, excelGen *excel.Generator, pdfGen *pdf.Generator, log zerolog.Logger) *Handler {
	return &Handler{recon: recon, excel: excelGen, pdf: pdfGen, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/passes/match", h.runMatch)
	protected.POST("/passes/repair", h.runRepair)
	protected.POST("/passes/dedup", h.runDedup)
	protected.POST("/passes/corners", h.runCorners)

	protected.GET("/audit", h.runAudit)
	protected.POST("/audit/resolve", h.resolveAudit)
	protected.POST("/audit/autofix", h.autoFixAudit)

	protected.GET("/export/findings", h.exportFindings)
	protected.GET("/export/audit/pdf", h.exportAuditPDF)
}

type matchRequest struct {
	Month string `json:"month"`
}

func (h *Handler) runMatch(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}

	// Body is optional; an absent or malformed body runs the full backlog.
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = matchRequest{}
	}

	summary, err := h.recon.RunMatch(c.Request.Context(), service.MatchInput{Month: req.Month})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) runRepair(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}
	summary, err := h.recon.RunRepair(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) runDedup(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}
	summary, err := h.recon.RunDedup(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) runCorners(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}
	summary, err := h.recon.RunCorners(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) runAudit(c *gin.Context) {
	auditReport, err := h.recon.RunAudit(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditReport)
}

type resolveRequest struct {
	ContractID      int64 `json:"contract_id" binding:"required"`
	Strategy        int   `json:"strategy" binding:"required"`
	TargetPartnerID int64 `json:"target_partner_id"`
}

func (h *Handler) resolveAudit(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Strategy < int(audit.StrategyAdoptCastPartner) || req.Strategy > int(audit.StrategyManualPartner) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy"})
		return
	}

	err := h.recon.ResolveInconsistency(c.Request.Context(), service.ResolveInput{
		ContractID:      req.ContractID,
		Strategy:        audit.Strategy(req.Strategy),
		TargetPartnerID: req.TargetPartnerID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (h *Handler) autoFixAudit(c *gin.Context) {
	if !h.requireMutator(c) {
		return
	}
	summary, err := h.recon.AutoFixAudit(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) exportFindings(c *gin.Context) {
	findings, err := h.recon.CollectFindings(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.excel.Generate(findings)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("recon-findings-%s.xlsx", findings.GeneratedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handler) exportAuditPDF(c *gin.Context) {
	auditReport, err := h.recon.RunAudit(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.pdf.Generate(auditReport.Inconsistencies)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("audit-report-%s.pdf", auditReport.Summary.FinishedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

func (h *Handler) requireMutator(c *gin.Context) bool {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return false
	}
	if !principal.CanMutate() {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrPermissionDenied.Error()})
		return false
	}
	return true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAmbiguousResolution):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
