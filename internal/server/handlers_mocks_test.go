package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/config"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
	"github.com/n0hyd/energy-app-sub001/internal/espm"
)

// --- Mock implementations ---

type mockAppService struct {
	signInFn             func(ctx context.Context, authSubject, email, displayName string) (*domain.User, error)
	getUserByIDFn        func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	listOrganizationsFn  func(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error)
	createOrganizationFn func(ctx context.Context, userID uuid.UUID, name string) (*domain.Organization, error)
	listBuildingsFn      func(ctx context.Context, userID uuid.UUID) ([]domain.Building, error)
	createBuildingFn     func(ctx context.Context, userID uuid.UUID, params app.BuildingParams) (*domain.Building, error)
	updateBuildingFn     func(ctx context.Context, userID, buildingID uuid.UUID, params app.BuildingParams) (*domain.Building, error)
	getBuildingDetailFn  func(ctx context.Context, userID, buildingID uuid.UUID) (*app.BuildingDetail, error)
	authorizeBuildingFn  func(ctx context.Context, userID, buildingID uuid.UUID) (*domain.Building, error)
	dashboardFn          func(ctx context.Context, userID uuid.UUID) (*app.DashboardData, error)
	listUploadsFn        func(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error)
	createUploadFn       func(ctx context.Context, userID, orgID uuid.UUID, buildingID *uuid.UUID, fileName string) (*domain.BillUpload, error)
	listPricesFn         func(ctx context.Context, state, utility string) ([]domain.EnergyPrice, error)
	ingestBillsFn        func(ctx context.Context, userID uuid.UUID, req app.IngestRequest) (*app.IngestResponse, error)
}

func (m *mockAppService) SignIn(ctx context.Context, authSubject, email, displayName string) (*domain.User, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, authSubject, email, displayName)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error) {
	if m.listOrganizationsFn != nil {
		return m.listOrganizationsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAppService) CreateOrganization(ctx context.Context, userID uuid.UUID, name string) (*domain.Organization, error) {
	if m.createOrganizationFn != nil {
		return m.createOrganizationFn(ctx, userID, name)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) ListBuildings(ctx context.Context, userID uuid.UUID) ([]domain.Building, error) {
	if m.listBuildingsFn != nil {
		return m.listBuildingsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAppService) CreateBuilding(ctx context.Context, userID uuid.UUID, params app.BuildingParams) (*domain.Building, error) {
	if m.createBuildingFn != nil {
		return m.createBuildingFn(ctx, userID, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) UpdateBuilding(ctx context.Context, userID, buildingID uuid.UUID, params app.BuildingParams) (*domain.Building, error) {
	if m.updateBuildingFn != nil {
		return m.updateBuildingFn(ctx, userID, buildingID, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) GetBuildingDetail(ctx context.Context, userID, buildingID uuid.UUID) (*app.BuildingDetail, error) {
	if m.getBuildingDetailFn != nil {
		return m.getBuildingDetailFn(ctx, userID, buildingID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) AuthorizeBuilding(ctx context.Context, userID, buildingID uuid.UUID) (*domain.Building, error) {
	if m.authorizeBuildingFn != nil {
		return m.authorizeBuildingFn(ctx, userID, buildingID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Dashboard(ctx context.Context, userID uuid.UUID) (*app.DashboardData, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, userID)
	}
	return &app.DashboardData{Stats: &domain.DashboardStats{}}, nil
}

func (m *mockAppService) ListUploads(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error) {
	if m.listUploadsFn != nil {
		return m.listUploadsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAppService) CreateUpload(ctx context.Context, userID, orgID uuid.UUID, buildingID *uuid.UUID, fileName string) (*domain.BillUpload, error) {
	if m.createUploadFn != nil {
		return m.createUploadFn(ctx, userID, orgID, buildingID, fileName)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) ListPrices(ctx context.Context, state, utility string) ([]domain.EnergyPrice, error) {
	if m.listPricesFn != nil {
		return m.listPricesFn(ctx, state, utility)
	}
	return nil, nil
}

func (m *mockAppService) IngestBills(ctx context.Context, userID uuid.UUID, req app.IngestRequest) (*app.IngestResponse, error) {
	if m.ingestBillsFn != nil {
		return m.ingestBillsFn(ctx, userID, req)
	}
	return nil, errors.New("not implemented")
}

type mockIdentityClient struct {
	result *identityResult
	err    error
}

func (m *mockIdentityClient) Exchange(_ context.Context, _ string) (*identityResult, error) {
	return m.result, m.err
}

type mockPriceSyncer struct {
	syncFn func(ctx context.Context) (*app.SyncResult, error)
}

func (m *mockPriceSyncer) Sync(ctx context.Context) (*app.SyncResult, error) {
	if m.syncFn != nil {
		return m.syncFn(ctx)
	}
	return &app.SyncResult{}, nil
}

type mockBenchmarkClient struct {
	getAccountFn     func(ctx context.Context) (*espm.Account, error)
	listPropertiesFn func(ctx context.Context, accountID int64) ([]espm.PropertyLink, error)
	createPropertyFn func(ctx context.Context, accountID int64, property espm.Property) (int64, error)
}

func (m *mockBenchmarkClient) GetAccount(ctx context.Context) (*espm.Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBenchmarkClient) ListProperties(ctx context.Context, accountID int64) ([]espm.PropertyLink, error) {
	if m.listPropertiesFn != nil {
		return m.listPropertiesFn(ctx, accountID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBenchmarkClient) CreateProperty(ctx context.Context, accountID int64, property espm.Property) (int64, error) {
	if m.createPropertyFn != nil {
		return m.createPropertyFn(ctx, accountID, property)
	}
	return 0, errors.New("not implemented")
}

// --- Test helpers ---

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("login.html").Funcs(templateFuncs).Parse(`Login {{.AuthURL}}`))
	template.Must(tmpl.New("dashboard.html").Parse(`Dashboard {{.User.DisplayName}}`))
	template.Must(tmpl.New("orgs.html").Parse(`Orgs {{len .Orgs}}`))
	template.Must(tmpl.New("buildings.html").Parse(`Buildings {{len .Buildings}}`))
	template.Must(tmpl.New("building_detail.html").Parse(`Building {{.Building.Name}}`))
	template.Must(tmpl.New("bill_new.html").Parse(`New bill {{.Building.Name}} uploads {{len .PendingUploads}}`))
	template.Must(tmpl.New("uploads.html").Parse(`Uploads {{len .Uploads}}`))

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	e := echo.New()

	srv := &Server{
		echo: e,
		config: &config.Config{
			AuthIssuerURL:   "https://id.example.com",
			AuthClientID:    "test-client-id",
			AuthRedirectURI: "http://localhost/auth/callback",
			SessionMaxAge:   time.Hour,
		},
		app:          app,
		sessionStore: store,
		templates:    tmpl,
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withIdentityClient(identity identityClient) func(*Server) {
	return func(s *Server) {
		s.identity = identity
	}
}

func withPriceSyncer(syncer priceSyncer) func(*Server) {
	return func(s *Server) {
		s.syncer = syncer
	}
}

func withBenchmarkClient(client benchmarkClient) func(*Server) {
	return func(s *Server) {
		s.benchmark = client
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}

func setSessionUserID(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(req, rec))
}

func testUser(userID uuid.UUID) *domain.User {
	return &domain.User{
		ID:          userID,
		AuthSubject: "auth0|abc123",
		Email:       "facilities@example.com",
		DisplayName: "Pat Facilities",
	}
}
