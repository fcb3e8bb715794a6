// Package service implements tag management.
package service

import (
	"context"
	"errors"

	"hospital_crm_backend/internal/tags/repository"
	"hospital_crm_backend/internal/tags/transport"
	"hospital_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Store is the data access interface the tag service needs.
type Store interface {
	Create(ctx context.Context, name string, color, category *string) (repository.Tag, error)
	List(ctx context.Context) ([]repository.Tag, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, req transport.CreateTagRequest) (transport.TagResponse, error) {
	var color, category *string
	if req.Color != "" {
		color = &req.Color
	}
	if req.Category != "" {
		category = &req.Category
	}
	tag, err := s.store.Create(ctx, req.Name, color, category)
	if errors.Is(err, repository.ErrDuplicate) {
		return transport.TagResponse{}, apperr.Conflict("a tag with this name already exists")
	}
	if err != nil {
		return transport.TagResponse{}, err
	}
	return toResponse(tag), nil
}

func (s *Service) List(ctx context.Context) ([]transport.TagResponse, error) {
	tags, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, toResponse(tag))
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("tag not found")
	}
	return err
}

func toResponse(tag repository.Tag) transport.TagResponse {
	resp := transport.TagResponse{
		ID:         tag.ID.String(),
		Name:       tag.Name,
		UsageCount: tag.UsageCount,
		CreatedAt:  tag.CreatedAt,
	}
	if tag.Color != nil {
		resp.Color = *tag.Color
	}
	if tag.Category != nil {
		resp.Category = *tag.Category
	}
	return resp
}
