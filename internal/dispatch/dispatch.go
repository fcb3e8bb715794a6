// Package dispatch sends campaign messages through the configured
// delivery channels. The send channels are external collaborators; this
// package only adapts them behind one interface and performs no retries.
// Retry is the caller's policy, because resending without knowing the
// outcome of the first attempt risks duplicate messages.
package dispatch

import (
	"context"
	"fmt"

	"hospital_crm_backend/internal/campaigns/domain"

	"github.com/google/uuid"
)

// Message is one outbound campaign message, already rendered.
type Message struct {
	CampaignID  uuid.UUID
	RecipientID uuid.UUID
	Channel     domain.Channel
	To          string
	Subject     string
	Body        string
}

// Channel delivers a message and returns the provider's reference for
// it, used to correlate later delivery reports.
type Channel interface {
	Send(ctx context.Context, msg Message) (providerRef string, err error)
}

// Router picks the adapter for a message's channel. Channels without a
// configured adapter fail the send, which the campaign records as a
// FAILED recipient rather than an error.
type Router struct {
	channels map[domain.Channel]Channel
}

func NewRouter() *Router {
	return &Router{channels: make(map[domain.Channel]Channel)}
}

func (r *Router) Register(ch domain.Channel, adapter Channel) {
	r.channels[ch] = adapter
}

func (r *Router) Send(ctx context.Context, msg Message) (string, error) {
	adapter, ok := r.channels[msg.Channel]
	if !ok {
		return "", fmt.Errorf("no send channel configured for %s", msg.Channel)
	}
	return adapter.Send(ctx, msg)
}
