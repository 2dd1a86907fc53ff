package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	invitationDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/invitation"
	"github.com/johnquangdev/call-insight/internal/adapter/presenter"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/invitation"
)

var invitationSortable = []string{"createdAt", "email", "expiresAt"}

// Invitation handles member invitation endpoints
type Invitation struct {
	service *invitation.Service
	now     func() time.Time
	logger  *zap.Logger
}

// NewInvitation creates a new invitation handler
func NewInvitation(service *invitation.Service, logger *zap.Logger) *Invitation {
	return &Invitation{service: service, now: time.Now, logger: logger}
}

// Create godoc
// @Summary      Invite a member
// @Description  Admins and managers. The token is only returned here and on resend.
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      invitationDTO.CreateInvitationRequest  true  "Invitation"
// @Success      201   {object}  common.SuccessResponse{data=presenter.InvitationResponse}
// @Failure      409   {object}  common.ErrorResponse
// @Router       /invitations [post]
func (h *Invitation) Create(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req invitationDTO.CreateInvitationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	issued, err := h.service.Create(c.Request().Context(), caller, req.Email, entities.UserRole(req.Role))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToIssuedInvitation(issued, h.now()))
}

// List godoc
// @Summary      List invitations
// @Tags         Invitations
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        sortBy  query     string  false  "createdAt, email or expiresAt"
// @Param        order   query     string  false  "asc or desc"
// @Success      200     {object}  common.SuccessResponse{data=common.ListResponse}
// @Router       /invitations [get]
func (h *Invitation) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	page, err := parsePage(c, invitationSortable...)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	items, total, err := h.service.List(c.Request().Context(), caller, page.Filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleList(h.logger, c, presenter.ToInvitationResponses(items, h.now()), page, total)
}

// Resend godoc
// @Summary      Resend an invitation
// @Description  Issues a new token and restarts the 7 day expiry.
// @Tags         Invitations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Invitation ID"
// @Success      200  {object}  common.SuccessResponse{data=presenter.InvitationResponse}
// @Router       /invitations/{id}/resend [post]
func (h *Invitation) Resend(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	issued, err := h.service.Resend(c.Request().Context(), caller, id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToIssuedInvitation(issued, h.now()))
}

// Delete godoc
// @Summary      Revoke an invitation
// @Tags         Invitations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Invitation ID"
// @Success      200  {object}  common.SuccessResponse
// @Router       /invitations/{id} [delete]
func (h *Invitation) Delete(c echo.Context) error {
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
	return HandleMessage(h.logger, c, "Invitation deleted")
}

// Lookup godoc
// @Summary      Preview an invitation
// @Tags         Invitations
// @Produce      json
// @Param        token  path      string  true  "Invitation token"
// @Success      200    {object}  common.SuccessResponse{data=invitation.Preview}
// @Failure      404    {object}  common.ErrorResponse
// @Failure      400    {object}  common.ErrorResponse
// @Router       /invitations/token/{token} [get]
func (h *Invitation) Lookup(c echo.Context) error {
	preview, err := h.service.Lookup(c.Request().Context(), c.Param("token"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, preview)
}

// Accept godoc
// @Summary      Accept an invitation
// @Description  Creates the user account and marks the invitation accepted.
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        body  body      invitationDTO.AcceptInvitationRequest  true  "Account details"
// @Success      201   {object}  common.SuccessResponse{data=entities.PublicUser}
// @Failure      409   {object}  common.ErrorResponse
// @Router       /invitations/accept [post]
func (h *Invitation) Accept(c echo.Context) error {
	var req invitationDTO.AcceptInvitationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	user, err := h.service.Accept(c.Request().Context(), req.Token, req.Name, req.Password)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, user.ToPublic())
}
