package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hospital_crm_backend/internal/campaigns/domain"
	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/httpkit"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/phone"
)

// GatewayClient talks to the SMS/WhatsApp messaging gateway.
type GatewayClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type gatewaySendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

type gatewaySendResponse struct {
	MessageID string `json:"messageId"`
}

// GatewayStatus is one delivery status row from the gateway's report
// listing.
type GatewayStatus struct {
	MessageID string    `json:"messageId"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewGatewayClient(cfg config.GatewayConfig, log *logger.Logger) *GatewayClient {
	if !cfg.IsGatewayEnabled() {
		return nil
	}

	return &GatewayClient{
		baseURL: strings.TrimRight(cfg.GetGatewayBaseURL(), "/"),
		apiKey:  cfg.GetGatewayAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Send posts one message to the gateway and returns its message id.
func (c *GatewayClient) Send(ctx context.Context, msg Message) (string, error) {
	if c == nil {
		return "", fmt.Errorf("messaging gateway not configured")
	}

	payload := gatewaySendRequest{
		Phone:   strings.TrimPrefix(phone.NormalizeE164(msg.To), "+"),
		Message: msg.Body,
		Channel: string(msg.Channel),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var sent gatewaySendResponse
	if err := json.Unmarshal(data, &sent); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	return sent.MessageID, nil
}

// ListStatuses pulls delivery status rows updated since the given time.
// Gateway revisions disagree on the list envelope shape; DecodeList
// normalizes both.
func (c *GatewayClient) ListStatuses(ctx context.Context, since time.Time) ([]GatewayStatus, error) {
	if c == nil {
		return nil, nil
	}

	url := fmt.Sprintf("%s/messages/statuses?since=%s", c.baseURL, since.UTC().Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var statuses []GatewayStatus
	if err := httpkit.DecodeList(data, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

var _ Channel = (*GatewayClient)(nil)

// Channels builds the router from whichever adapters are configured.
func Channels(smtp EmailSender, gateway *GatewayClient) *Router {
	router := NewRouter()
	if smtp != nil {
		router.Register(domain.ChannelEmail, NewEmailChannel(smtp))
	}
	if gateway != nil {
		router.Register(domain.ChannelSMS, gateway)
		router.Register(domain.ChannelWhatsApp, gateway)
	}
	return router
}
