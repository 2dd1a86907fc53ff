package handler

import (
	"bytes"
	"encoding/json"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/johnquangdev/call-insight/errors"
	userDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/user"
	"github.com/johnquangdev/call-insight/internal/adapter/presenter"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/user"
)

var userSortable = []string{"createdAt", "name", "email", "role"}

// User handles member and organization endpoints
type User struct {
	service *user.Service
	logger  *zap.Logger
}

// NewUser creates a new user handler
func NewUser(service *user.Service, logger *zap.Logger) *User {
	return &User{service: service, logger: logger}
}

// List godoc
// @Summary      List organization members
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        sortBy  query     string  false  "createdAt, name, email or role"
// @Param        order   query     string  false  "asc or desc"
// @Success      200     {object}  common.SuccessResponse{data=common.ListResponse}
// @Failure      403     {object}  common.ErrorResponse
// @Router       /users [get]
func (h *User) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	page, err := parsePage(c, userSortable...)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	users, total, err := h.service.List(c.Request().Context(), caller, page.Filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleList(h.logger, c, presenter.ToPublicUsers(users), page, total)
}

// Get godoc
// @Summary      Get a member
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  common.SuccessResponse{data=entities.PublicUser}
// @Failure      404  {object}  common.ErrorResponse
// @Router       /users/{id} [get]
func (h *User) Get(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	u, err := h.service.Get(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, u.ToPublic())
}

// Update godoc
// @Summary      Update a member
// @Description  Self or admin. Only admins change roles.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                     true  "User ID"
// @Param        body  body      userDTO.UpdateUserRequest  true  "Fields to change"
// @Success      200   {object}  common.SuccessResponse{data=entities.PublicUser}
// @Failure      403   {object}  common.ErrorResponse
// @Router       /users/{id} [put]
func (h *User) Update(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req userDTO.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	in := user.UpdateInput{Name: req.Name, AvatarURL: req.AvatarURL}
	if req.Role != nil {
		role := entities.UserRole(*req.Role)
		in.Role = &role
	}
	u, err := h.service.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, u.ToPublic())
}

// Deactivate godoc
// @Summary      Deactivate a member
// @Description  Admin only. Revokes the member's sessions.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  common.SuccessResponse
// @Failure      403  {object}  common.ErrorResponse
// @Router       /users/{id} [delete]
func (h *User) Deactivate(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.service.Deactivate(c.Request().Context(), caller, id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleMessage(h.logger, c, "User deactivated")
}

// Organization godoc
// @Summary      Current organization
// @Tags         Organizations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.SuccessResponse{data=entities.Organization}
// @Router       /organizations/current [get]
func (h *User) Organization(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	org, err := h.service.Organization(c.Request().Context(), caller)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, org)
}

// UpdateOrganization godoc
// @Summary      Update the current organization
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userDTO.UpdateOrganizationRequest  true  "Fields to change"
// @Success      200   {object}  common.SuccessResponse{data=entities.Organization}
// @Failure      403   {object}  common.ErrorResponse
// @Router       /organizations/current [put]
func (h *User) UpdateOrganization(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req userDTO.UpdateOrganizationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	settings, err := jsonObject(req.Settings, "settings")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	org, err := h.service.UpdateOrganization(c.Request().Context(), caller, user.OrganizationInput{
		Name:     req.Name,
		Settings: settings,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, org)
}

// jsonObject accepts an absent value or a JSON object.
func jsonObject(raw json.RawMessage, field string) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, apperrors.ErrInvalidArgument(field + " must be a JSON object").WithDetail(field, "object")
	}
	return datatypes.JSON(trimmed), nil
}
