// Package transport contains request and response DTOs for the templates API.
package transport

import "time"

type CreateTemplateRequest struct {
	Name      string   `json:"name" validate:"required,min=1,max=120"`
	Channel   string   `json:"channel" validate:"required,oneof=EMAIL SMS WHATSAPP"`
	Subject   string   `json:"subject" validate:"max=200"`
	Body      string   `json:"body" validate:"required"`
	Variables []string `json:"variables" validate:"dive,min=1,max=60"`
}

type UpdateTemplateRequest struct {
	Name      *string   `json:"name" validate:"omitempty,min=1,max=120"`
	Subject   *string   `json:"subject" validate:"omitempty,max=200"`
	Body      *string   `json:"body"`
	Variables *[]string `json:"variables" validate:"omitempty,dive,min=1,max=60"`
}

type RenderTemplateRequest struct {
	Values map[string]string `json:"values"`
}

type TemplateResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Channel    string    `json:"channel"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	Variables  []string  `json:"variables"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type RenderedTemplateResponse struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}
