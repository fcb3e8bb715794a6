// Package service implements template management and rendering.
package service

import (
	"context"
	"errors"

	"hospital_crm_backend/internal/templates/domain"
	"hospital_crm_backend/internal/templates/repository"
	"hospital_crm_backend/internal/templates/transport"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the data access interface the template service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateTemplateParams) (repository.Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Template, error)
	List(ctx context.Context, channel *domain.Channel) ([]repository.Template, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateTemplateParams) (repository.Template, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, req transport.CreateTemplateRequest) (transport.TemplateResponse, error) {
	var subject *string
	if req.Subject != "" {
		subject = &req.Subject
	}
	tpl, err := s.store.Create(ctx, repository.CreateTemplateParams{
		Name:      req.Name,
		Channel:   domain.Channel(req.Channel),
		Subject:   subject,
		Body:      req.Body,
		Variables: req.Variables,
	})
	if err != nil {
		return transport.TemplateResponse{}, err
	}
	return toResponse(tpl), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.TemplateResponse, error) {
	tpl, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.TemplateResponse{}, mapNotFound(err)
	}
	return toResponse(tpl), nil
}

func (s *Service) List(ctx context.Context, channel string) ([]transport.TemplateResponse, error) {
	var filter *domain.Channel
	if channel != "" {
		ch := domain.Channel(channel)
		filter = &ch
	}
	templates, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, toResponse(tpl))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateTemplateRequest) (transport.TemplateResponse, error) {
	tpl, err := s.store.Update(ctx, id, repository.UpdateTemplateParams{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		Variables: req.Variables,
	})
	if err != nil {
		return transport.TemplateResponse{}, mapNotFound(err)
	}
	return toResponse(tpl), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.store.Delete(ctx, id))
}

// Render resolves placeholders against the provided values and bumps the
// template's usage count.
func (s *Service) Render(ctx context.Context, id uuid.UUID, values map[string]string) (transport.RenderedTemplateResponse, error) {
	tpl, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.RenderedTemplateResponse{}, mapNotFound(err)
	}

	rendered := transport.RenderedTemplateResponse{
		Body: domain.Render(tpl.Body, tpl.Variables, values),
	}
	if tpl.Subject != nil {
		rendered.Subject = domain.Render(*tpl.Subject, tpl.Variables, values)
	}

	if err := s.store.IncrementUsage(ctx, id); err != nil {
		s.log.DatabaseError("templates.increment_usage", err)
	}
	return rendered, nil
}

// RenderFunc renders a template against one recipient's values.
type RenderFunc func(values map[string]string) (subject, body string)

// Renderer loads a template once and returns a per-recipient render
// function. Usage is counted once per acquisition, not per recipient,
// so a thousand-recipient dispatch registers as one use.
func (s *Service) Renderer(ctx context.Context, id uuid.UUID) (RenderFunc, error) {
	tpl, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if err := s.store.IncrementUsage(ctx, id); err != nil {
		s.log.DatabaseError("templates.increment_usage", err)
	}

	return func(values map[string]string) (string, string) {
		subject := ""
		if tpl.Subject != nil {
			subject = domain.Render(*tpl.Subject, tpl.Variables, values)
		}
		return subject, domain.Render(tpl.Body, tpl.Variables, values)
	}, nil
}

func toResponse(tpl repository.Template) transport.TemplateResponse {
	resp := transport.TemplateResponse{
		ID:         tpl.ID.String(),
		Name:       tpl.Name,
		Channel:    string(tpl.Channel),
		Body:       tpl.Body,
		Variables:  tpl.Variables,
		UsageCount: tpl.UsageCount,
		CreatedAt:  tpl.CreatedAt,
		UpdatedAt:  tpl.UpdatedAt,
	}
	if tpl.Subject != nil {
		resp.Subject = *tpl.Subject
	}
	if resp.Variables == nil {
		resp.Variables = []string{}
	}
	return resp
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("template not found")
	}
	return err
}
