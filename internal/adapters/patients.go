// Package adapters bridges modules to external collaborators without
// letting domain packages depend on each other's transports.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hospital_crm_backend/internal/leads/service"
	"hospital_crm_backend/internal/leads/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// PatientsClient converts a lead into a patient record through the
// hospital's patient service. A conversion that cannot reach the
// service fails with a dependency error and leaves the lead untouched.
type PatientsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type createPatientRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

type createPatientResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func NewPatientsClient(cfg config.PatientsConfig, log *logger.Logger) *PatientsClient {
	if !cfg.IsPatientsEnabled() {
		return nil
	}

	return &PatientsClient{
		baseURL: strings.TrimRight(cfg.GetPatientsBaseURL(), "/"),
		apiKey:  cfg.GetPatientsAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (c *PatientsClient) CreatePatient(ctx context.Context, req transport.ConvertLeadRequest) (string, error) {
	body, err := json.Marshal(createPatientRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/patients", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", apperr.Dependency("patient service unavailable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return "", apperr.Dependency("patient service unavailable",
			fmt.Errorf("patient service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var created createPatientResponse
	if err := json.Unmarshal(data, &created); err != nil {
		return "", apperr.Dependency("patient service unavailable", err)
	}
	if created.Data.ID == "" {
		return "", apperr.Dependency("patient service unavailable", fmt.Errorf("patient service returned no id"))
	}
	return created.Data.ID, nil
}

// LocalPatientRegistry mints patient ids locally. Used when no patient
// service is configured, so lead conversion still works in development
// and single-clinic deployments without the hospital integration.
type LocalPatientRegistry struct {
	log *logger.Logger
}

func NewLocalPatientRegistry(log *logger.Logger) *LocalPatientRegistry {
	return &LocalPatientRegistry{log: log}
}

func (r *LocalPatientRegistry) CreatePatient(_ context.Context, req transport.ConvertLeadRequest) (string, error) {
	id := "PAT-" + uuid.NewString()
	r.log.Info("patient record created locally", "patient_id", id, "name", req.FirstName+" "+req.LastName)
	return id, nil
}

// PatientConverter picks the configured implementation.
func PatientConverter(cfg config.PatientsConfig, log *logger.Logger) service.PatientConverter {
	if client := NewPatientsClient(cfg, log); client != nil {
		return client
	}
	return NewLocalPatientRegistry(log)
}
