// Package template manages the sales process templates calls are scored against.
package template

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
)

const maxSteps = 20

type Service struct {
	templates repositories.TemplateRepository
	logger    *zap.Logger
}

func NewService(templates repositories.TemplateRepository, logger *zap.Logger) *Service {
	return &Service{templates: templates, logger: logger}
}

// Input is the editable part of a template.
type Input struct {
	Name        string
	Description *string
	Steps       []entities.ProcessStep
	IsDefault   bool
}

// normalize trims names and lower-cases keywords so matching is case-insensitive.
func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperrors.ErrInvalidArgument("name is required")
	}
	if len(in.Steps) == 0 {
		return in, apperrors.ErrInvalidArgument("at least one step is required")
	}
	if len(in.Steps) > maxSteps {
		return in, apperrors.ErrInvalidArgument("a template has at most 20 steps")
	}
	seen := make(map[string]bool, len(in.Steps))
	steps := make([]entities.ProcessStep, 0, len(in.Steps))
	for _, st := range in.Steps {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			return in, apperrors.ErrInvalidArgument("step name is required")
		}
		key := strings.ToLower(st.Name)
		if seen[key] {
			return in, apperrors.ErrInvalidArgument("duplicate step " + st.Name)
		}
		seen[key] = true

		keywords := make([]string, 0, len(st.Keywords))
		for _, k := range st.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		st.Keywords = keywords
		steps = append(steps, st)
	}
	in.Steps = steps
	return in, nil
}

func canEdit(caller *entities.User) error {
	if !caller.CanManage() {
		return apperrors.ErrPermissionDenied("manage process templates")
	}
	return nil
}

func (s *Service) List(ctx context.Context, caller *entities.User) ([]*entities.ProcessTemplate, error) {
	items, err := s.templates.List(ctx, caller.OrganizationID)
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}
	if items == nil {
		items = []*entities.ProcessTemplate{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.ProcessTemplate, error) {
	t, err := s.templates.FindByID(ctx, caller.OrganizationID, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// Create adds a template. When IsDefault is set the previous default is
// cleared in the same transaction.
func (s *Service) Create(ctx context.Context, caller *entities.User, in Input) (*entities.ProcessTemplate, error) {
	if err := canEdit(caller); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	t := &entities.ProcessTemplate{
		ID:             uuid.New(),
		OrganizationID: caller.OrganizationID,
		Name:           in.Name,
		Description:    in.Description,
		Steps:          in.Steps,
		IsDefault:      in.IsDefault,
		CreatedBy:      caller.ID,
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, mapErr(err)
	}
	if s.logger != nil {
		s.logger.Info("template.created", zap.String("template_id", t.ID.String()), zap.Bool("default", t.IsDefault))
	}
	return t, nil
}

// Update replaces the template's fields. Clearing IsDefault on the current
// default leaves the organization without one.
func (s *Service) Update(ctx context.Context, caller *entities.User, id uuid.UUID, in Input) (*entities.ProcessTemplate, error) {
	if err := canEdit(caller); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	t, err := s.templates.FindByID(ctx, caller.OrganizationID, id)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Name = in.Name
	t.Description = in.Description
	t.Steps = in.Steps
	t.IsDefault = in.IsDefault
	if err := s.templates.Update(ctx, t); err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, caller *entities.User, id uuid.UUID) error {
	if err := canEdit(caller); err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, caller.OrganizationID, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// SetDefault makes id the organization's only default template.
func (s *Service) SetDefault(ctx context.Context, caller *entities.User, id uuid.UUID) (*entities.ProcessTemplate, error) {
	if err := canEdit(caller); err != nil {
		return nil, err
	}
	if err := s.templates.SetDefault(ctx, caller.OrganizationID, id); err != nil {
		return nil, mapErr(err)
	}
	return s.Get(ctx, caller, id)
}

func mapErr(err error) error {
	switch {
	case stdErrors.Is(err, entities.ErrTemplateNotFound):
		return apperrors.ErrNotFound("process template")
	case stdErrors.Is(err, entities.ErrTemplateAlreadyExists):
		return apperrors.ErrAlreadyExists("process template")
	}
	return apperrors.ErrInternal(err)
}
