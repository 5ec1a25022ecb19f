package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/config"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/n0hyd/energy-app-sub001/internal/espm"
	"github.com/n0hyd/energy-app-sub001/web"
)

type appService interface {
	SignIn(ctx context.Context, authSubject, email, displayName string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListOrganizations(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error)
	CreateOrganization(ctx context.Context, userID uuid.UUID, name string) (*domain.Organization, error)
	ListBuildings(ctx context.Context, userID uuid.UUID) ([]domain.Building, error)
	CreateBuilding(ctx context.Context, userID uuid.UUID, params app.BuildingParams) (*domain.Building, error)
	UpdateBuilding(ctx context.Context, userID, buildingID uuid.UUID, params app.BuildingParams) (*domain.Building, error)
	GetBuildingDetail(ctx context.Context, userID, buildingID uuid.UUID) (*app.BuildingDetail, error)
	AuthorizeBuilding(ctx context.Context, userID, buildingID uuid.UUID) (*domain.Building, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*app.DashboardData, error)
	ListUploads(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error)
	CreateUpload(ctx context.Context, userID, orgID uuid.UUID, buildingID *uuid.UUID, fileName string) (*domain.BillUpload, error)
	ListPrices(ctx context.Context, state, utility string) ([]domain.EnergyPrice, error)
	IngestBills(ctx context.Context, userID uuid.UUID, req app.IngestRequest) (*app.IngestResponse, error)
}

type priceSyncer interface {
	Sync(ctx context.Context) (*app.SyncResult, error)
}

// benchmarkClient is the slice of the benchmarking service client the proxy
// routes use. A nil client means the integration is not configured.
type benchmarkClient interface {
	GetAccount(ctx context.Context) (*espm.Account, error)
	ListProperties(ctx context.Context, accountID int64) ([]espm.PropertyLink, error)
	CreateProperty(ctx context.Context, accountID int64, property espm.Property) (int64, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app       appService
	syncer    priceSyncer
	benchmark benchmarkClient

	templates *template.Template

	identity     identityClient
	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, syncer priceSyncer, benchmark benchmarkClient, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		syncer:       syncer,
		benchmark:    benchmark,
		identity:     newIdentityClient(cfg.AuthIssuerURL, cfg.AuthClientID, cfg.AuthClientSecret, cfg.AuthRedirectURI),
		sessionStore: setupSessionStore(cfg),
		templates:    templates,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName           = "billtrack-session"
	sessionKeyUserID      = "user_id"
	sessionKeyOAuthState  = "oauth_state"
	sessionKeyLoginTarget = "login_target"
)

// templateFuncs are the helpers available inside every page template.
var templateFuncs = template.FuncMap{
	"money": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("$%.2f", *v)
	},
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
