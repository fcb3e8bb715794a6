package handler

import (
	"hospital_crm_backend/internal/dashboard/service"
	"hospital_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Snapshot)
	rg.GET("/conversion-report", h.ConversionReport)
}

func (h *Handler) Snapshot(c *gin.Context) {
	snapshot, err := h.svc.Snapshot(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, snapshot)
}

func (h *Handler) ConversionReport(c *gin.Context) {
	report, err := h.svc.ConversionReport(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}
