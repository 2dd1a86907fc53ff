package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	templateDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/template"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/template"
)

// Template handles process template endpoints
type Template struct {
	service *template.Service
	logger  *zap.Logger
}

// NewTemplate creates a new template handler
func NewTemplate(service *template.Service, logger *zap.Logger) *Template {
	return &Template{service: service, logger: logger}
}

func toTemplateInput(req templateDTO.TemplateRequest) template.Input {
	steps := make([]entities.ProcessStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, entities.ProcessStep{
			Name:        s.Name,
			Description: s.Description,
			Keywords:    s.Keywords,
			Required:    s.Required,
		})
	}
	return template.Input{
		Name:        req.Name,
		Description: req.Description,
		Steps:       steps,
		IsDefault:   req.IsDefault,
	}
}

// List godoc
// @Summary      List process templates
// @Tags         Templates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.SuccessResponse{data=[]entities.ProcessTemplate}
// @Router       /templates [get]
func (h *Template) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	items, err := h.service.List(c.Request().Context(), caller)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, items)
}

// Get godoc
// @Summary      Get a process template
// @Tags         Templates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.ProcessTemplate}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /templates/{id} [get]
func (h *Template) Get(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	t, err := h.service.Get(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, t)
}

// Create godoc
// @Summary      Create a process template
// @Description  Admins and managers. Names are unique per organization; isDefault clears the previous default.
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      templateDTO.TemplateRequest  true  "Template"
// @Success      201   {object}  common.SuccessResponse{data=entities.ProcessTemplate}
// @Failure      409   {object}  common.ErrorResponse
// @Router       /templates [post]
func (h *Template) Create(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req templateDTO.TemplateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	t, err := h.service.Create(c.Request().Context(), caller, toTemplateInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, t)
}

// Update godoc
// @Summary      Replace a process template
// @Tags         Templates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                       true  "Template ID"
// @Param        body  body      templateDTO.TemplateRequest  true  "Template"
// @Success      200   {object}  common.SuccessResponse{data=entities.ProcessTemplate}
// @Router       /templates/{id} [put]
func (h *Template) Update(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req templateDTO.TemplateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	t, err := h.service.Update(c.Request().Context(), caller, id, toTemplateInput(req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, t)
}

// Delete godoc
// @Summary      Delete a process template
// @Tags         Templates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  common.SuccessResponse
// @Router       /templates/{id} [delete]
func (h *Template) Delete(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.service.Delete(c.Request().Context(), caller, id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleMessage(h.logger, c, "Template deleted")
}

// SetDefault godoc
// @Summary      Make a template the organization default
// @Tags         Templates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.ProcessTemplate}
// @Router       /templates/{id}/default [post]
func (h *Template) SetDefault(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	t, err := h.service.SetDefault(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, t)
}
