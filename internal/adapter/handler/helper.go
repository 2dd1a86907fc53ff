package handler

import (
	stdErrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/adapter/dto/common"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/domain/repositories"
	httpmw "github.com/johnquangdev/call-insight/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/call-insight/pkg/validator"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100

	// maxPage keeps (page-1)*limit far from int overflow.
	maxPage = 1_000_000
)

func getRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// HandleSuccess writes data inside the success envelope with status 200.
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	return respond(logger, c, http.StatusOK, common.SuccessResponse{Success: true, Data: data})
}

// HandleCreated writes data inside the success envelope with status 201.
func HandleCreated(logger *zap.Logger, c echo.Context, data interface{}) error {
	return respond(logger, c, http.StatusCreated, common.SuccessResponse{Success: true, Data: data})
}

// HandleMessage writes a success envelope that carries only a message.
func HandleMessage(logger *zap.Logger, c echo.Context, message string) error {
	return respond(logger, c, http.StatusOK, common.SuccessResponse{Success: true, Message: message})
}

// HandleList writes one page of items with its pagination block.
func HandleList(logger *zap.Logger, c echo.Context, items interface{}, page Page, total int64) error {
	return HandleSuccess(logger, c, common.ListResponse{
		Data:       items,
		Pagination: common.NewPagination(page.Page, page.Limit, total),
	})
}

func respond(logger *zap.Logger, c echo.Context, status int, body common.SuccessResponse) error {
	if logger != nil {
		logger.Debug("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Int("status", status),
		)
	}
	return c.JSON(status, body)
}

// HandleError converts any error into the error envelope. Unknown errors
// become 500 and are logged with the request id.
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	appErr := toAppError(err)
	if logger != nil {
		fields := []zap.Field{
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.String("app_code", appErr.Code.String()),
			zap.Int("status", appErr.HTTPCode),
		}
		if appErr.Raw != nil {
			fields = append(fields, zap.Error(appErr.Raw))
		}
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("http.response.error", fields...)
		} else {
			logger.Info("http.response.error", fields...)
		}
	}
	return c.JSON(appErr.HTTPCode, common.ErrorResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    appErr.Code.String(),
		Details: appErr.Details,
	})
}

// ErrorHandler is installed as echo's HTTPErrorHandler so router level
// failures (404, 405, body limit, rate limit) share the envelope.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if hErr := HandleError(logger, c, err); hErr != nil && logger != nil {
			logger.Error("http.response.write_failed", zap.Error(hErr))
		}
	}
}

func toAppError(err error) apperrors.AppError {
	var appErr apperrors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}
	if fields := validator.FieldErrors(err); fields != nil {
		appErr = apperrors.ErrValidation(err)
		appErr.Details = fields
		return appErr
	}
	var httpErr *echo.HTTPError
	if stdErrors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	switch {
	case stdErrors.Is(err, entities.ErrMissingTenant):
		return apperrors.ErrUnauthenticated()
	case stdErrors.Is(err, entities.ErrRecordingNotFound):
		return apperrors.ErrNotFound("Recording")
	case stdErrors.Is(err, entities.ErrUserNotFound):
		return apperrors.ErrNotFound("User")
	case stdErrors.Is(err, entities.ErrOrganizationNotFound):
		return apperrors.ErrNotFound("Organization")
	case stdErrors.Is(err, entities.ErrTemplateNotFound):
		return apperrors.ErrNotFound("Process template")
	case stdErrors.Is(err, entities.ErrInvitationNotFound):
		return apperrors.ErrNotFound("Invitation")
	case stdErrors.Is(err, entities.ErrTranscriptionNotFound):
		return apperrors.ErrNotFound("Transcription")
	case stdErrors.Is(err, entities.ErrAnalysisNotFound):
		return apperrors.ErrNotFound("Analysis")
	case stdErrors.Is(err, entities.ErrTemplateAlreadyExists),
		stdErrors.Is(err, entities.ErrInvitationAlreadyExists):
		return apperrors.ErrAlreadyExists("Resource")
	case stdErrors.Is(err, entities.ErrUserAlreadyExists):
		return apperrors.ErrAlreadyExists("User")
	case stdErrors.Is(err, entities.ErrInvitationExpired):
		return apperrors.ErrInvitationExpired()
	case stdErrors.Is(err, entities.ErrInvitationAccepted):
		return apperrors.ErrInvitationAccepted()
	case stdErrors.Is(err, entities.ErrUnauthorized):
		return apperrors.ErrUnauthenticated()
	case stdErrors.Is(err, entities.ErrForbidden):
		return apperrors.ErrForbidden("Insufficient permissions")
	case stdErrors.Is(err, entities.ErrInvalidRequest),
		stdErrors.Is(err, entities.ErrInvalidStatusTransition):
		return apperrors.ErrInvalidArgument(err.Error())
	}
	return apperrors.ErrInternal(err)
}

func fromHTTPError(httpErr *echo.HTTPError) apperrors.AppError {
	message := http.StatusText(httpErr.Code)
	if s, ok := httpErr.Message.(string); ok && s != "" {
		message = s
	}
	appErr := apperrors.AppError{HTTPCode: httpErr.Code, Message: message, Raw: httpErr.Internal}
	switch httpErr.Code {
	case http.StatusBadRequest:
		appErr.Code = apperrors.ErrorCode_INVALID_ARGUMENT
	case http.StatusUnauthorized:
		appErr.Code = apperrors.ErrorCode_UNAUTHENTICATED
	case http.StatusForbidden:
		appErr.Code = apperrors.ErrorCode_FORBIDDEN
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		appErr.Code = apperrors.ErrorCode_NOT_FOUND
	case http.StatusRequestEntityTooLarge:
		appErr.Code = apperrors.ErrorCode_RECORDING_TOO_LARGE
	case http.StatusTooManyRequests:
		appErr.Code = apperrors.ErrorCode_TOO_MANY_REQUESTS
	case http.StatusServiceUnavailable:
		appErr.Code = apperrors.ErrorCode_UNAVAILABLE
	default:
		appErr.Code = apperrors.ErrorCode_INTERNAL
	}
	return appErr
}

// bindAndValidate binds the request into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.ErrInvalidArgument("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// pathID parses the named path parameter as a UUID.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidArgument("Invalid " + name).WithDetail(name, "uuid")
	}
	return id, nil
}

// Page is a parsed page request.
type Page struct {
	Page  int
	Limit int
	repositories.Filters
}

// parsePage reads page, limit, sortBy and order. sortBy must be one of
// sortable; an empty sortBy keeps the repository default.
func parsePage(c echo.Context, sortable ...string) (Page, error) {
	p := Page{Page: defaultPage, Limit: defaultLimit}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, apperrors.ErrInvalidArgument("page must be a positive integer").WithDetail("page", "min=1")
		}
		if n > maxPage {
			return p, apperrors.ErrInvalidArgument("page is too large").WithDetail("page", "max=1000000")
		}
		p.Page = n
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, apperrors.ErrInvalidArgument("limit must be a positive integer").WithDetail("limit", "min=1")
		}
		if n > maxLimit {
			n = maxLimit
		}
		p.Limit = n
	}
	if sortBy := c.QueryParam("sortBy"); sortBy != "" {
		allowed := false
		for _, s := range sortable {
			if s == sortBy {
				allowed = true
				break
			}
		}
		if !allowed {
			return p, apperrors.ErrInvalidArgument("unsupported sortBy").
				WithDetail("sortBy", "oneof="+strings.Join(sortable, " "))
		}
		p.SortBy = sortBy
	}
	order := strings.ToLower(c.QueryParam("order"))
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return p, apperrors.ErrInvalidArgument("order must be asc or desc").WithDetail("order", "oneof=asc desc")
	}
	p.SortOrder = order
	p.Filters.Limit = p.Limit
	p.Offset = (p.Page - 1) * p.Limit
	return p, nil
}

// currentUser returns the user placed on the context by the auth middleware.
func currentUser(c echo.Context) (*entities.User, error) {
	user, ok := httpmw.CurrentUser(c)
	if !ok {
		return nil, apperrors.ErrUnauthenticated()
	}
	return user, nil
}
