// Package transport contains request and response DTOs for the tags API.
package transport

import "time"

type CreateTagRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=60"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	Category string `json:"category" validate:"omitempty,max=40"`
}

type TagResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color,omitempty"`
	Category   string    `json:"category,omitempty"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}
