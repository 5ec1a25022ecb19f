package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/n0hyd/energy-app-sub001/internal/eia"
)

// --- Mock implementations ---

type mockUserRepo struct {
	getByIDFn          func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getByAuthSubjectFn func(ctx context.Context, authSubject string) (*domain.User, error)
	upsertFn           func(ctx context.Context, authSubject, email, displayName string) (*domain.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) GetByAuthSubject(ctx context.Context, authSubject string) (*domain.User, error) {
	if m.getByAuthSubjectFn != nil {
		return m.getByAuthSubjectFn(ctx, authSubject)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) Upsert(ctx context.Context, authSubject, email, displayName string) (*domain.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, authSubject, email, displayName)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockOrgRepo struct {
	createFn     func(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Organization, error)
	getByIDFn    func(ctx context.Context, orgID uuid.UUID) (*domain.Organization, error)
	listByUserFn func(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error)
	isMemberFn   func(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	addMemberFn  func(ctx context.Context, orgID, userID uuid.UUID, role domain.OrgRole) error
}

func (m *mockOrgRepo) Create(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Organization, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, ownerID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockOrgRepo) GetByID(ctx context.Context, orgID uuid.UUID) (*domain.Organization, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, orgID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockOrgRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

// IsMember defaults to true; denial tests override isMemberFn.
func (m *mockOrgRepo) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	if m.isMemberFn != nil {
		return m.isMemberFn(ctx, orgID, userID)
	}
	return true, nil
}

func (m *mockOrgRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID, role domain.OrgRole) error {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, orgID, userID, role)
	}
	return nil
}

type mockBuildingRepo struct {
	createFn     func(ctx context.Context, orgID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error)
	getByIDFn    func(ctx context.Context, buildingID uuid.UUID) (*domain.Building, error)
	updateFn     func(ctx context.Context, buildingID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error)
	listByUserFn func(ctx context.Context, userID uuid.UUID) ([]domain.Building, error)
}

func (m *mockBuildingRepo) Create(ctx context.Context, orgID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error) {
	if m.createFn != nil {
		return m.createFn(ctx, orgID, name, address, state, squareFeet)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBuildingRepo) GetByID(ctx context.Context, buildingID uuid.UUID) (*domain.Building, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, buildingID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBuildingRepo) Update(ctx context.Context, buildingID uuid.UUID, name, address, state string, squareFeet *int32) (*domain.Building, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, buildingID, name, address, state, squareFeet)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBuildingRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Building, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

type mockMeterRepo struct {
	getByLabelFn     func(ctx context.Context, buildingID uuid.UUID, label string) (*domain.Meter, error)
	createFn         func(ctx context.Context, buildingID uuid.UUID, label string, utility domain.Utility, provider string) (*domain.Meter, error)
	updateProviderFn func(ctx context.Context, meterID uuid.UUID, provider string) error
	listByBuildingFn func(ctx context.Context, buildingID uuid.UUID) ([]domain.Meter, error)
}

func (m *mockMeterRepo) GetByLabel(ctx context.Context, buildingID uuid.UUID, label string) (*domain.Meter, error) {
	if m.getByLabelFn != nil {
		return m.getByLabelFn(ctx, buildingID, label)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMeterRepo) Create(ctx context.Context, buildingID uuid.UUID, label string, utility domain.Utility, provider string) (*domain.Meter, error) {
	if m.createFn != nil {
		return m.createFn(ctx, buildingID, label, utility, provider)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockMeterRepo) UpdateProvider(ctx context.Context, meterID uuid.UUID, provider string) error {
	if m.updateProviderFn != nil {
		return m.updateProviderFn(ctx, meterID, provider)
	}
	return nil
}

func (m *mockMeterRepo) ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.Meter, error) {
	if m.listByBuildingFn != nil {
		return m.listByBuildingFn(ctx, buildingID)
	}
	return nil, nil
}

type mockBillRepo struct {
	getByPeriodFn      func(ctx context.Context, meterID uuid.UUID, periodStart, periodEnd time.Time) (*domain.Bill, error)
	createFn           func(ctx context.Context, params domain.CreateBillParams) (*domain.Bill, error)
	updateCostsFn      func(ctx context.Context, billID uuid.UUID, totalCost, demandCost *float64, uploadID *uuid.UUID) (*domain.Bill, error)
	upsertUsageFn      func(ctx context.Context, billID uuid.UUID, usage domain.Usage) (bool, error)
	getUsageFn         func(ctx context.Context, billID uuid.UUID) (*domain.UsageReading, error)
	listByBuildingFn   func(ctx context.Context, buildingID uuid.UUID) ([]domain.BillWithMeter, error)
	listRecentByUserFn func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.BillWithMeter, error)
}

func (m *mockBillRepo) GetByPeriod(ctx context.Context, meterID uuid.UUID, periodStart, periodEnd time.Time) (*domain.Bill, error) {
	if m.getByPeriodFn != nil {
		return m.getByPeriodFn(ctx, meterID, periodStart, periodEnd)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillRepo) Create(ctx context.Context, params domain.CreateBillParams) (*domain.Bill, error) {
	if m.createFn != nil {
		return m.createFn(ctx, params)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillRepo) UpdateCosts(ctx context.Context, billID uuid.UUID, totalCost, demandCost *float64, uploadID *uuid.UUID) (*domain.Bill, error) {
	if m.updateCostsFn != nil {
		return m.updateCostsFn(ctx, billID, totalCost, demandCost, uploadID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillRepo) UpsertUsage(ctx context.Context, billID uuid.UUID, usage domain.Usage) (bool, error) {
	if m.upsertUsageFn != nil {
		return m.upsertUsageFn(ctx, billID, usage)
	}
	return false, fmt.Errorf("not implemented")
}

func (m *mockBillRepo) GetUsage(ctx context.Context, billID uuid.UUID) (*domain.UsageReading, error) {
	if m.getUsageFn != nil {
		return m.getUsageFn(ctx, billID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBillRepo) ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.BillWithMeter, error) {
	if m.listByBuildingFn != nil {
		return m.listByBuildingFn(ctx, buildingID)
	}
	return nil, nil
}

func (m *mockBillRepo) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.BillWithMeter, error) {
	if m.listRecentByUserFn != nil {
		return m.listRecentByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

type mockUploadRepo struct {
	createFn      func(ctx context.Context, orgID uuid.UUID, buildingID *uuid.UUID, fileName, storageKey string, uploadedBy uuid.UUID) (*domain.BillUpload, error)
	getByIDFn     func(ctx context.Context, uploadID uuid.UUID) (*domain.BillUpload, error)
	listByUserFn  func(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error)
	markEnteredFn func(ctx context.Context, uploadID uuid.UUID) error
}

func (m *mockUploadRepo) Create(ctx context.Context, orgID uuid.UUID, buildingID *uuid.UUID, fileName, storageKey string, uploadedBy uuid.UUID) (*domain.BillUpload, error) {
	if m.createFn != nil {
		return m.createFn(ctx, orgID, buildingID, fileName, storageKey, uploadedBy)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUploadRepo) GetByID(ctx context.Context, uploadID uuid.UUID) (*domain.BillUpload, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, uploadID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUploadRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUploadRepo) MarkEntered(ctx context.Context, uploadID uuid.UUID) error {
	if m.markEnteredFn != nil {
		return m.markEnteredFn(ctx, uploadID)
	}
	return nil
}

type mockPriceRepo struct {
	upsertFn       func(ctx context.Context, price domain.EnergyPrice) error
	getFn          func(ctx context.Context, state string, utility domain.Utility) (*domain.EnergyPrice, error)
	listFn         func(ctx context.Context) ([]domain.EnergyPrice, error)
	listByStatesFn func(ctx context.Context, states []string) ([]domain.EnergyPrice, error)
}

func (m *mockPriceRepo) Upsert(ctx context.Context, price domain.EnergyPrice) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, price)
	}
	return nil
}

func (m *mockPriceRepo) Get(ctx context.Context, state string, utility domain.Utility) (*domain.EnergyPrice, error) {
	if m.getFn != nil {
		return m.getFn(ctx, state, utility)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockPriceRepo) List(ctx context.Context) ([]domain.EnergyPrice, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPriceRepo) ListByStates(ctx context.Context, states []string) ([]domain.EnergyPrice, error) {
	if m.listByStatesFn != nil {
		return m.listByStatesFn(ctx, states)
	}
	return nil, nil
}

type mockDashboardRepo struct {
	statsByUserFn func(ctx context.Context, userID uuid.UUID, yearStart time.Time) (*domain.DashboardStats, error)
}

func (m *mockDashboardRepo) StatsByUser(ctx context.Context, userID uuid.UUID, yearStart time.Time) (*domain.DashboardStats, error) {
	if m.statsByUserFn != nil {
		return m.statsByUserFn(ctx, userID, yearStart)
	}
	return &domain.DashboardStats{}, nil
}

type mockPriceFetcher struct {
	fetchFn func(ctx context.Context, utility domain.Utility) ([]eia.StatePrice, error)
}

func (m *mockPriceFetcher) FetchStatePrices(ctx context.Context, utility domain.Utility) ([]eia.StatePrice, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, utility)
	}
	return nil, fmt.Errorf("not implemented")
}

// newTestService creates a Service for testing, filling unset repositories
// with zero-value mocks.
func newTestService(repos Repositories, clock clockwork.Clock) *Service {
	if repos.Users == nil {
		repos.Users = &mockUserRepo{}
	}
	if repos.Orgs == nil {
		repos.Orgs = &mockOrgRepo{}
	}
	if repos.Buildings == nil {
		repos.Buildings = &mockBuildingRepo{}
	}
	if repos.Meters == nil {
		repos.Meters = &mockMeterRepo{}
	}
	if repos.Bills == nil {
		repos.Bills = &mockBillRepo{}
	}
	if repos.Uploads == nil {
		repos.Uploads = &mockUploadRepo{}
	}
	if repos.Prices == nil {
		repos.Prices = &mockPriceRepo{}
	}
	if repos.Dashboard == nil {
		repos.Dashboard = &mockDashboardRepo{}
	}
	return NewService(repos, clock)
}

func float64Ptr(v float64) *float64 { return &v }
