package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	authDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/auth"
	"github.com/johnquangdev/call-insight/internal/usecase/auth"
)

// Auth handles authentication HTTP requests
type Auth struct {
	service      *auth.Service
	logger       *zap.Logger
	secureCookie bool
	refreshTTL   time.Duration
}

// NewAuth creates a new auth handler. secureCookie marks the refresh cookie
// Secure and is set in production.
func NewAuth(service *auth.Service, logger *zap.Logger, secureCookie bool, refreshTTL time.Duration) *Auth {
	return &Auth{service: service, logger: logger, secureCookie: secureCookie, refreshTTL: refreshTTL}
}

func clientOf(c echo.Context) auth.Client {
	return auth.Client{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

// Register godoc
// @Summary      Register an organization
// @Description  Creates the organization and its first admin atomically, then signs the admin in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      authDTO.RegisterRequest  true  "Registration"
// @Success      201   {object}  common.SuccessResponse{data=auth.Result}
// @Failure      400   {object}  common.ErrorResponse
// @Failure      409   {object}  common.ErrorResponse
// @Router       /auth/register [post]
func (h *Auth) Register(c echo.Context) error {
	var req authDTO.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	result, err := h.service.Register(c.Request().Context(), auth.RegisterInput{
		OrganizationName: req.OrganizationName,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
	}, clientOf(c))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	h.setRefreshCookie(c, result)
	return HandleCreated(h.logger, c, result)
}

// Login godoc
// @Summary      Sign in with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      authDTO.LoginRequest  true  "Credentials"
// @Success      200   {object}  common.SuccessResponse{data=auth.Result}
// @Failure      401   {object}  common.ErrorResponse
// @Router       /auth/login [post]
func (h *Auth) Login(c echo.Context) error {
	var req authDTO.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	result, err := h.service.Login(c.Request().Context(), req.Email, req.Password, clientOf(c))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	h.setRefreshCookie(c, result)
	return HandleSuccess(h.logger, c, result)
}

// RefreshToken godoc
// @Summary      Exchange a refresh token for a new access token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      authDTO.RefreshTokenRequest  false  "Refresh token (cookie used when omitted)"
// @Success      200   {object}  common.SuccessResponse{data=auth.Result}
// @Failure      401   {object}  common.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Auth) RefreshToken(c echo.Context) error {
	var req authDTO.RefreshTokenRequest
	_ = c.Bind(&req)
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, err)
	}

	result, err := h.service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, result)
}

// Logout godoc
// @Summary      Revoke the refresh token
// @Description  Idempotent. allDevices revokes every session of the signed-in user.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      authDTO.LogoutRequest  false  "Refresh token (cookie used when omitted)"
// @Success      200   {object}  common.SuccessResponse
// @Router       /auth/logout [post]
func (h *Auth) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req authDTO.LogoutRequest
	_ = c.Bind(&req)
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}

	if req.AllDevices {
		user, err := currentUser(c)
		if err != nil {
			return HandleError(h.logger, c, err)
		}
		if err := h.service.LogoutAll(ctx, user); err != nil {
			return HandleError(h.logger, c, err)
		}
	} else if req.RefreshToken != "" {
		if err := h.service.Logout(ctx, req.RefreshToken); err != nil {
			return HandleError(h.logger, c, err)
		}
	}

	h.clearRefreshCookie(c)
	return HandleMessage(h.logger, c, "Logged out successfully")
}

// Me godoc
// @Summary      Current user and organization
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.SuccessResponse{data=auth.Result}
// @Failure      401  {object}  common.ErrorResponse
// @Router       /auth/me [get]
func (h *Auth) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	result, err := h.service.Me(c.Request().Context(), user)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, result)
}

// GoogleLogin godoc
// @Summary      Start Google sign-in
// @Description  Redirects to Google, or returns the URL as JSON when Accept is application/json
// @Tags         Auth
// @Success      307
// @Failure      503  {object}  common.ErrorResponse
// @Router       /auth/google/login [get]
func (h *Auth) GoogleLogin(c echo.Context) error {
	url, err := h.service.GoogleLoginURL(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if c.Request().Header.Get(echo.HeaderAccept) == echo.MIMEApplicationJSON {
		return HandleSuccess(h.logger, c, map[string]string{"url": url})
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback godoc
// @Summary      Google sign-in callback
// @Description  Signs in an existing member. Accounts are never created here.
// @Tags         Auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "CSRF state"
// @Success      200    {object}  common.SuccessResponse{data=auth.Result}
// @Failure      401    {object}  common.ErrorResponse
// @Failure      403    {object}  common.ErrorResponse
// @Router       /auth/google/callback [get]
func (h *Auth) GoogleCallback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		return HandleError(h.logger, c, apperrors.ErrOAuthFailed("google", nil).WithDetail("reason", errParam))
	}
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("Missing code or state parameter"))
	}

	result, err := h.service.GoogleCallback(c.Request().Context(), code, state, clientOf(c))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	h.setRefreshCookie(c, result)
	return HandleSuccess(h.logger, c, result)
}

const refreshCookie = "refresh_token"

func (h *Auth) setRefreshCookie(c echo.Context, result *auth.Result) {
	if result == nil || result.RefreshToken == "" {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    result.RefreshToken,
		Path:     "/api",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

func (h *Auth) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
