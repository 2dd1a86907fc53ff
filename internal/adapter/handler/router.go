package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "github.com/johnquangdev/call-insight/docs"
	apperrors "github.com/johnquangdev/call-insight/errors"
	"github.com/johnquangdev/call-insight/internal/domain/entities"
	httpmw "github.com/johnquangdev/call-insight/internal/infrastructure/http/middleware"
	pkgmw "github.com/johnquangdev/call-insight/pkg/middleware"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health describes the backends reported by /api/health. A nil Database
// means the in-memory driver.
type Health struct {
	Environment string
	Database    Pinger
	Storage     string
	Speech      string
	Analyzer    string
}

// Handlers groups every resource handler.
type Handlers struct {
	Auth        *Auth
	Users       *User
	Recordings  *Recording
	Templates   *Template
	Invitations *Invitation
	Analytics   *Analytics
}

// Router holds all handlers
type Router struct {
	h           Handlers
	authMW      *httpmw.AuthMiddleware
	rateLimit   echo.MiddlewareFunc
	uploadLimit echo.MiddlewareFunc
	health      Health
	logger      *zap.Logger
}

// RouterConfig carries the request limits.
type RouterConfig struct {
	AuthRateLimit  float64
	MaxUploadBytes int64
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg RouterConfig, h Handlers, authMW *httpmw.AuthMiddleware, health Health, logger *zap.Logger) *Router {
	rt := &Router{
		h:         h,
		authMW:    authMW,
		rateLimit: pkgmw.RateLimit(pkgmw.RateLimitConfig{PerSecond: cfg.AuthRateLimit}),
		health:    health,
		logger:    logger,
	}
	if cfg.MaxUploadBytes > 0 {
		// Leave headroom for the multipart envelope; the handler checks the file itself.
		limitKB := (cfg.MaxUploadBytes + 1<<20) >> 10
		rt.uploadLimit = echomw.BodyLimit(formatKB(limitKB))
	} else {
		rt.uploadLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return rt
}

func formatKB(kb int64) string {
	return strconv.FormatInt(kb, 10) + "K"
}

// Setup configures all application routes. Every API route is registered
// under both /api and /api/v1.
func (rt *Router) Setup(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler(rt.logger)

	e.GET("/health", rt.liveness)

	api := e.Group("/api")
	api.GET("/health", rt.readiness)
	api.GET("/docs", rt.docs)
	api.GET("/routes", rt.routes(e))
	api.GET("/swagger/*", echoSwagger.WrapHandler)

	rt.register(api)
	rt.register(e.Group("/api/v1"))
}

func (rt *Router) register(g *echo.Group) {
	auth := rt.authMW.Authenticate
	managers := httpmw.RequireRole(entities.RoleAdmin, entities.RoleManager)
	admins := httpmw.RequireRole(entities.RoleAdmin)

	a := g.Group("/auth", rt.rateLimit)
	a.POST("/register", rt.h.Auth.Register)
	a.POST("/login", rt.h.Auth.Login)
	a.POST("/refresh", rt.h.Auth.RefreshToken)
	a.POST("/logout", rt.h.Auth.Logout, rt.authMW.OptionalAuth)
	a.GET("/me", rt.h.Auth.Me, auth)
	a.GET("/google/login", rt.h.Auth.GoogleLogin)
	a.GET("/google/callback", rt.h.Auth.GoogleCallback)

	g.GET("/users", rt.h.Users.List, auth, managers)
	g.GET("/users/:id", rt.h.Users.Get, auth)
	g.PUT("/users/:id", rt.h.Users.Update, auth)
	g.DELETE("/users/:id", rt.h.Users.Deactivate, auth, admins)

	g.GET("/organizations/current", rt.h.Users.Organization, auth)
	g.PUT("/organizations/current", rt.h.Users.UpdateOrganization, auth, admins)

	g.POST("/recordings", rt.h.Recordings.Upload, rt.uploadLimit, auth)
	g.GET("/recordings", rt.h.Recordings.List, auth)
	g.GET("/recordings/:id", rt.h.Recordings.Get, auth)
	g.PUT("/recordings/:id", rt.h.Recordings.Update, auth)
	g.DELETE("/recordings/:id", rt.h.Recordings.Delete, auth)
	g.GET("/recordings/:id/url", rt.h.Recordings.URL, auth)
	g.POST("/recordings/:id/transcribe", rt.h.Recordings.Transcribe, auth)
	g.GET("/recordings/:id/transcription", rt.h.Recordings.Transcription, auth)
	g.POST("/recordings/:id/analysis", rt.h.Recordings.Analyze, auth)
	g.GET("/recordings/:id/analysis", rt.h.Recordings.Analysis, auth)

	g.GET("/templates", rt.h.Templates.List, auth)
	g.POST("/templates", rt.h.Templates.Create, auth, managers)
	g.GET("/templates/:id", rt.h.Templates.Get, auth)
	g.PUT("/templates/:id", rt.h.Templates.Update, auth, managers)
	g.DELETE("/templates/:id", rt.h.Templates.Delete, auth, managers)
	g.POST("/templates/:id/default", rt.h.Templates.SetDefault, auth, managers)

	g.POST("/invitations", rt.h.Invitations.Create, auth, managers)
	g.GET("/invitations", rt.h.Invitations.List, auth, managers)
	g.POST("/invitations/:id/resend", rt.h.Invitations.Resend, auth, managers)
	g.DELETE("/invitations/:id", rt.h.Invitations.Delete, auth, managers)
	g.GET("/invitations/token/:token", rt.h.Invitations.Lookup, rt.rateLimit)
	g.POST("/invitations/accept", rt.h.Invitations.Accept, rt.rateLimit)

	g.GET("/analytics/dashboard", rt.h.Analytics.Dashboard, auth)
	g.GET("/analytics/conversations", rt.h.Analytics.Conversations, auth)
	g.GET("/analytics/sentiment", rt.h.Analytics.Sentiment, auth)
	g.GET("/analytics/process", rt.h.Analytics.Process, auth)
	g.GET("/analytics/opportunities", rt.h.Analytics.Opportunities, auth)
	g.GET("/analytics/team", rt.h.Analytics.Team, auth, managers)
}

// liveness godoc
// @Summary      Liveness probe
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (rt *Router) liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// readiness godoc
// @Summary      Readiness probe
// @Description  Pings the database and reports the configured providers.
// @Tags         System
// @Produce      json
// @Success      200  {object}  common.SuccessResponse
// @Failure      503  {object}  common.ErrorResponse
// @Router       /api/health [get]
func (rt *Router) readiness(c echo.Context) error {
	database := "memory"
	if rt.health.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := rt.health.Database.Ping(ctx); err != nil {
			return HandleError(rt.logger, c, apperrors.ErrServiceUnavailable("database", err))
		}
		database = "postgres"
	}
	return HandleSuccess(rt.logger, c, map[string]string{
		"status":      "ok",
		"environment": rt.health.Environment,
		"database":    database,
		"storage":     rt.health.Storage,
		"speech":      rt.health.Speech,
		"analyzer":    rt.health.Analyzer,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// docs serves the OpenAPI document, or redirects browsers to the swagger UI.
func (rt *Router) docs(c echo.Context) error {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusFound, "/api/swagger/index.html")
	}
	doc, err := swag.ReadDoc()
	if err != nil {
		return HandleError(rt.logger, c, apperrors.ErrInternal(err))
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(doc))
}

// routeInfo is one row of /api/routes.
type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (rt *Router) routes(e *echo.Echo) echo.HandlerFunc {
	return func(c echo.Context) error {
		out := make([]routeInfo, 0, len(e.Routes()))
		for _, r := range e.Routes() {
			if r.Method == echo.RouteNotFound || strings.HasSuffix(r.Name, "NotFoundHandler") {
				continue
			}
			out = append(out, routeInfo{Method: r.Method, Path: r.Path})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Path != out[j].Path {
				return out[i].Path < out[j].Path
			}
			return out[i].Method < out[j].Method
		})
		return HandleSuccess(rt.logger, c, out)
	}
}
