package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/call-insight/errors"
	analyticsDTO "github.com/johnquangdev/call-insight/internal/adapter/dto/analytics"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	"github.com/johnquangdev/call-insight/internal/usecase/analytics"
)

// Analytics handles the reporting endpoints
type Analytics struct {
	service *analytics.Service
	logger  *zap.Logger
}

// NewAnalytics creates a new analytics handler
func NewAnalytics(service *analytics.Service, logger *zap.Logger) *Analytics {
	return &Analytics{service: service, logger: logger}
}

// bindQuery binds and validates query parameters into dst and returns the
// caller with the range query.
func (h *Analytics) bindQuery(c echo.Context, dst interface{}, base *analyticsDTO.Query) (*entities.User, analytics.Query, error) {
	caller, err := currentUser(c)
	if err != nil {
		return nil, analytics.Query{}, err
	}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return nil, analytics.Query{}, apperrors.ErrInvalidArgument("Invalid query parameters")
	}
	if err := c.Validate(dst); err != nil {
		return nil, analytics.Query{}, err
	}
	q := analytics.Query{Days: base.Days}
	if base.UserID != "" {
		id := uuid.MustParse(base.UserID)
		q.UserID = &id
	}
	return caller, q, nil
}

func groupBy(raw string) analytics.GroupBy {
	if raw == "" {
		return analytics.GroupByDay
	}
	return analytics.GroupBy(raw)
}

// Dashboard godoc
// @Summary      Dashboard totals
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days    query     int     false  "Range in days (1-365, default 30)"
// @Param        userId  query     string  false  "Restrict to one user (admins and managers)"
// @Success      200     {object}  common.SuccessResponse{data=analytics.DashboardStats}
// @Router       /analytics/dashboard [get]
func (h *Analytics) Dashboard(c echo.Context) error {
	var req analyticsDTO.Query
	caller, q, err := h.bindQuery(c, &req, &req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	stats, err := h.service.Dashboard(c.Request().Context(), caller, q)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, stats)
}

// Conversations godoc
// @Summary      Conversation volume over time
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days     query     int     false  "Range in days (1-365, default 30)"
// @Param        userId   query     string  false  "Restrict to one user (admins and managers)"
// @Param        groupBy  query     string  false  "day, week or month"
// @Success      200      {object}  common.SuccessResponse{data=analytics.ConversationReport}
// @Router       /analytics/conversations [get]
func (h *Analytics) Conversations(c echo.Context) error {
	var req analyticsDTO.TrendQuery
	caller, q, err := h.bindQuery(c, &req, &req.Query)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	report, err := h.service.ConversationTrends(c.Request().Context(), caller, q, groupBy(req.GroupBy))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, report)
}

// Sentiment godoc
// @Summary      Sentiment trends and distribution
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days     query     int     false  "Range in days (1-365, default 30)"
// @Param        userId   query     string  false  "Restrict to one user (admins and managers)"
// @Param        groupBy  query     string  false  "day, week or month"
// @Success      200      {object}  common.SuccessResponse{data=analytics.SentimentReport}
// @Router       /analytics/sentiment [get]
func (h *Analytics) Sentiment(c echo.Context) error {
	var req analyticsDTO.TrendQuery
	caller, q, err := h.bindQuery(c, &req, &req.Query)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	report, err := h.service.SentimentTrends(c.Request().Context(), caller, q, groupBy(req.GroupBy))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, report)
}

// Process godoc
// @Summary      Process adherence
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days    query     int     false  "Range in days (1-365, default 30)"
// @Param        userId  query     string  false  "Restrict to one user (admins and managers)"
// @Success      200     {object}  common.SuccessResponse{data=analytics.ProcessReport}
// @Router       /analytics/process [get]
func (h *Analytics) Process(c echo.Context) error {
	var req analyticsDTO.Query
	caller, q, err := h.bindQuery(c, &req, &req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	report, err := h.service.ProcessAdherence(c.Request().Context(), caller, q)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, report)
}

// Opportunities godoc
// @Summary      Sales opportunities
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days      query     int     false  "Range in days (1-365, default 30)"
// @Param        userId    query     string  false  "Restrict to one user (admins and managers)"
// @Param        type      query     string  false  "Opportunity type"
// @Param        priority  query     string  false  "high, medium or low"
// @Success      200       {object}  common.SuccessResponse{data=analytics.OpportunityReport}
// @Router       /analytics/opportunities [get]
func (h *Analytics) Opportunities(c echo.Context) error {
	var req analyticsDTO.OpportunityQuery
	caller, q, err := h.bindQuery(c, &req, &req.Query)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	report, err := h.service.Opportunities(c.Request().Context(), caller, q, analytics.OpportunityFilter{
		Type:     req.Type,
		Priority: entities.OpportunityPriority(req.Priority),
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, report)
}

// Team godoc
// @Summary      Team performance
// @Description  Admins and managers.
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days  query     int  false  "Range in days (1-365, default 30)"
// @Success      200   {object}  common.SuccessResponse{data=analytics.TeamReport}
// @Failure      403   {object}  common.ErrorResponse
// @Router       /analytics/team [get]
func (h *Analytics) Team(c echo.Context) error {
	var req analyticsDTO.Query
	caller, q, err := h.bindQuery(c, &req, &req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	report, err := h.service.TeamPerformance(c.Request().Context(), caller, q)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, report)
}
