package dispatch

import (
	"net/http"

	"hospital_crm_backend/internal/campaigns/service"
	"hospital_crm_backend/internal/campaigns/transport"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/platform/httpkit"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookModule exposes the public endpoint the delivery gateway calls
// with status reports. It lives outside the authenticated group; the
// gateway authenticates with a shared key, not a user token.
type WebhookModule struct {
	campaigns *service.Service
	val       *validator.Validator
	apiKey    string
	log       *logger.Logger
}

func NewWebhookModule(campaigns *service.Service, val *validator.Validator, apiKey string, log *logger.Logger) *WebhookModule {
	return &WebhookModule{campaigns: campaigns, val: val, apiKey: apiKey, log: log}
}

func (m *WebhookModule) Name() string {
	return "dispatch-webhook"
}

func (m *WebhookModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/campaigns/:id/delivery", m.handleDeliveryReport)
}

func (m *WebhookModule) handleDeliveryReport(c *gin.Context) {
	if m.apiKey != "" && c.GetHeader("X-Api-Key") != m.apiKey {
		httpkit.Error(c, http.StatusUnauthorized, "invalid api key", nil)
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var req transport.DeliveryReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if httpkit.HandleError(c, m.campaigns.IngestDeliveryReport(c.Request.Context(), campaignID, req)) {
		return
	}

	c.Status(http.StatusAccepted)
}

var _ apphttp.Module = (*WebhookModule)(nil)
