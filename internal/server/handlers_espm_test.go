package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
	"github.com/n0hyd/energy-app-sub001/internal/espm"
)

// --- unconfigured proxy tests ---

func TestBenchmarkRoutes_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/account", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkAccount, c)
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), "benchmarking integration is not configured")
}

func TestBenchmarkProperties_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	e := srv.echo

	req := httptest.NewRequest(http.MethodPost, "/api/espm/properties", strings.NewReader(`{"buildingId": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkCreateProperty, c)
	assert.Equal(t, 503, rec.Code)
}

// --- handleBenchmarkAccount tests ---

func TestHandleBenchmarkAccount_Success(t *testing.T) {
	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return &espm.Account{ID: 12345, Username: "billtrack-svc", Email: "energy@example.com"}, nil
		},
	}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/account", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	err := srv.handleBenchmarkAccount(c)
	assert.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"billtrack-svc"`)
	assert.Contains(t, rec.Body.String(), `"id":12345`)
}

func TestHandleBenchmarkAccount_UpstreamError(t *testing.T) {
	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return nil, &espm.UpstreamError{StatusCode: 401, Message: "Invalid credentials"}
		},
	}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/account", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkAccount, c)
	assert.Equal(t, 502, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestHandleBenchmarkAccount_Unreachable(t *testing.T) {
	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/account", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkAccount, c)
	assert.Equal(t, 502, rec.Code)
	assert.Contains(t, rec.Body.String(), "benchmarking service unreachable")
}

// --- handleBenchmarkProperties tests ---

func TestHandleBenchmarkProperties_Success(t *testing.T) {
	var listedAccountID int64

	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return &espm.Account{ID: 12345, Username: "billtrack-svc"}, nil
		},
		listPropertiesFn: func(_ context.Context, accountID int64) ([]espm.PropertyLink, error) {
			listedAccountID = accountID
			return []espm.PropertyLink{
				{ID: 901, Hint: "Main Library"},
				{ID: 902, Hint: "City Hall"},
			}, nil
		},
	}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/properties", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	err := srv.handleBenchmarkProperties(c)
	assert.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, int64(12345), listedAccountID)
	assert.Contains(t, rec.Body.String(), `"hint":"Main Library"`)
	assert.Contains(t, rec.Body.String(), `"id":902`)
}

func TestHandleBenchmarkProperties_ListError(t *testing.T) {
	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return &espm.Account{ID: 12345}, nil
		},
		listPropertiesFn: func(_ context.Context, _ int64) ([]espm.PropertyLink, error) {
			return nil, &espm.UpstreamError{StatusCode: 500, Message: "Internal Server Error"}
		},
	}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodGet, "/api/espm/properties", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkProperties, c)
	assert.Equal(t, 502, rec.Code)
}

// --- handleBenchmarkCreateProperty tests ---

func TestHandleBenchmarkCreateProperty_Success(t *testing.T) {
	buildingID := uuid.New()
	squareFeet := int32(42000)
	var gotProperty espm.Property

	mockApp := &mockAppService{
		authorizeBuildingFn: func(_ context.Context, _, id uuid.UUID) (*domain.Building, error) {
			return &domain.Building{
				ID:         id,
				Name:       "Main Library",
				Address:    "101 Main St",
				State:      "KS",
				SquareFeet: &squareFeet,
			}, nil
		},
	}
	client := &mockBenchmarkClient{
		getAccountFn: func(_ context.Context) (*espm.Account, error) {
			return &espm.Account{ID: 12345}, nil
		},
		createPropertyFn: func(_ context.Context, accountID int64, property espm.Property) (int64, error) {
			assert.Equal(t, int64(12345), accountID)
			gotProperty = property
			return 907, nil
		},
	}

	srv := newTestServer(t, mockApp, withBenchmarkClient(client))
	e := srv.echo

	body := fmt.Sprintf(`{"buildingId": %q}`, buildingID)
	req := httptest.NewRequest(http.MethodPost, "/api/espm/properties", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	err := srv.handleBenchmarkCreateProperty(c)
	assert.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"propertyId":907`)

	assert.Equal(t, "Main Library", gotProperty.Name)
	assert.Equal(t, "101 Main St", gotProperty.Address.Address1)
	assert.Equal(t, "KS", gotProperty.Address.State)
	assert.Equal(t, "US", gotProperty.Address.Country)
	assert.Equal(t, int64(42000), gotProperty.GrossFloorArea.Value)
	assert.Equal(t, "Square Feet", gotProperty.GrossFloorArea.Units)
	assert.Equal(t, 100, gotProperty.OccupancyPercentage)
}

func TestHandleBenchmarkCreateProperty_BadBuildingID(t *testing.T) {
	client := &mockBenchmarkClient{}

	srv := newTestServer(t, &mockAppService{}, withBenchmarkClient(client))
	e := srv.echo

	req := httptest.NewRequest(http.MethodPost, "/api/espm/properties", strings.NewReader(`{"buildingId": "not-a-uuid"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkCreateProperty, c)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleBenchmarkCreateProperty_ForeignBuilding(t *testing.T) {
	mockApp := &mockAppService{
		authorizeBuildingFn: func(_ context.Context, _, _ uuid.UUID) (*domain.Building, error) {
			return nil, apperrors.ForbiddenError("not a member of this organization")
		},
	}

	srv := newTestServer(t, mockApp, withBenchmarkClient(&mockBenchmarkClient{}))
	e := srv.echo

	body := fmt.Sprintf(`{"buildingId": %q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/espm/properties", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkCreateProperty, c)
	assert.Equal(t, 403, rec.Code)
}

func TestHandleBenchmarkCreateProperty_UnknownBuilding(t *testing.T) {
	mockApp := &mockAppService{
		authorizeBuildingFn: func(_ context.Context, _, _ uuid.UUID) (*domain.Building, error) {
			return nil, apperrors.NotFoundError("building not found")
		},
	}

	srv := newTestServer(t, mockApp, withBenchmarkClient(&mockBenchmarkClient{}))
	e := srv.echo

	body := fmt.Sprintf(`{"buildingId": %q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/espm/properties", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uuid.New())

	_ = callHandler(srv.handleBenchmarkCreateProperty, c)
	assert.Equal(t, 404, rec.Code)
}

func TestBuildingToProperty_MissingSquareFeet(t *testing.T) {
	building := &domain.Building{Name: "Annex", Address: "5 Side St", State: "MO"}

	property := buildingToProperty(building)

	assert.Equal(t, "Annex", property.Name)
	assert.Equal(t, int64(0), property.GrossFloorArea.Value)
	assert.Equal(t, 100, property.OccupancyPercentage)
}
