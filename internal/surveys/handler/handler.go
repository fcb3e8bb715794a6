package handler

import (
	"net/http"

	"hospital_crm_backend/internal/surveys/service"
	"hospital_crm_backend/internal/surveys/transport"
	"hospital_crm_backend/platform/httpkit"
	"hospital_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/follow-ups", h.FollowUpQueue)
	rg.POST("/follow-ups/:responseId/complete", h.CompleteFollowUp)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/analytics", h.Analytics)
	rg.GET("/:id/responses", h.Responses)
	rg.POST("/:id/responses", h.SubmitResponse)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	survey, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, survey)
}

func (h *Handler) List(c *gin.Context) {
	surveys, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.List(c, surveys)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	survey, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, survey)
}

func (h *Handler) SubmitResponse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.SubmitResponse(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) Responses(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	responses, err := h.svc.Responses(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.List(c, responses)
}

func (h *Handler) Analytics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	analytics, err := h.svc.Analytics(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, analytics)
}

func (h *Handler) FollowUpQueue(c *gin.Context) {
	queue, err := h.svc.FollowUpQueue(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.List(c, queue)
}

func (h *Handler) CompleteFollowUp(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("responseId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.CompleteFollowUp(c.Request.Context(), responseID)) {
		return
	}

	c.Status(http.StatusNoContent)
}
