package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
)

const recentBillsLimit = 10

// Repositories bundles the persistence dependencies of the service.
type Repositories struct {
	Users     domain.UserRepository
	Orgs      domain.OrganizationRepository
	Buildings domain.BuildingRepository
	Meters    domain.MeterRepository
	Bills     domain.BillRepository
	Uploads   domain.UploadRepository
	Prices    domain.PriceRepository
	Dashboard domain.DashboardRepository
}

// Service orchestrates the use cases over the repository interfaces and
// returns structured errors that the HTTP layer maps to status codes.
type Service struct {
	repos Repositories
	clock clockwork.Clock
}

// NewService creates the application layer service.
func NewService(repos Repositories, clock clockwork.Clock) *Service {
	return &Service{repos: repos, clock: clock}
}

// SignIn upserts the user record from the identity provider's claims.
func (s *Service) SignIn(ctx context.Context, authSubject, email, displayName string) (*domain.User, error) {
	if authSubject == "" {
		return nil, apperrors.ValidationError("auth subject is required")
	}
	if displayName == "" {
		displayName = email
	}

	user, err := s.repos.Users.Upsert(ctx, authSubject, email, displayName)
	if err != nil {
		return nil, apperrors.InternalError("failed to sign in user", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by internal ID.
func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to load user", err)
	}
	return user, nil
}

// ListOrganizations returns the organizations the user belongs to.
func (s *Service) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]domain.Organization, error) {
	orgs, err := s.repos.Orgs.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list organizations", err)
	}
	return orgs, nil
}

// CreateOrganization creates an org with the caller as owner member.
func (s *Service) CreateOrganization(ctx context.Context, userID uuid.UUID, name string) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ValidationError("organization name is required")
	}

	org, err := s.repos.Orgs.Create(ctx, name, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to create organization", err)
	}
	return org, nil
}

// BuildingParams carries the mutable building fields. OrgID is only consulted
// on create; buildings never move between organizations.
type BuildingParams struct {
	OrgID      uuid.UUID
	Name       string
	Address    string
	State      string
	SquareFeet *int32
}

func (p *BuildingParams) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperrors.ValidationError("building name is required")
	}
	p.State = strings.ToUpper(strings.TrimSpace(p.State))
	if p.State != "" && len(p.State) != 2 {
		return apperrors.ValidationError("state must be a two-letter code")
	}
	if p.SquareFeet != nil && *p.SquareFeet < 0 {
		return apperrors.ValidationError("square feet must not be negative")
	}
	return nil
}

// ListBuildings returns buildings across the user's organizations.
func (s *Service) ListBuildings(ctx context.Context, userID uuid.UUID) ([]domain.Building, error) {
	buildings, err := s.repos.Buildings.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list buildings", err)
	}
	return buildings, nil
}

// CreateBuilding creates a building in one of the caller's organizations.
func (s *Service) CreateBuilding(ctx context.Context, userID uuid.UUID, params BuildingParams) (*domain.Building, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, params.OrgID, userID); err != nil {
		return nil, err
	}

	building, err := s.repos.Buildings.Create(ctx, params.OrgID, params.Name, params.Address, params.State, params.SquareFeet)
	if err != nil {
		return nil, apperrors.InternalError("failed to create building", err)
	}
	return building, nil
}

// UpdateBuilding updates name, address, state and square feet.
func (s *Service) UpdateBuilding(ctx context.Context, userID, buildingID uuid.UUID, params BuildingParams) (*domain.Building, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if _, err := s.AuthorizeBuilding(ctx, userID, buildingID); err != nil {
		return nil, err
	}

	building, err := s.repos.Buildings.Update(ctx, buildingID, params.Name, params.Address, params.State, params.SquareFeet)
	if err != nil {
		return nil, apperrors.InternalError("failed to update building", err)
	}
	return building, nil
}

// BuildingDetail joins everything the building page shows.
type BuildingDetail struct {
	Building *domain.Building
	Meters   []domain.Meter
	Bills    []domain.BillWithMeter
}

// GetBuildingDetail loads the building with its meters and bills. Membership
// in the building's org is enforced.
func (s *Service) GetBuildingDetail(ctx context.Context, userID, buildingID uuid.UUID) (*BuildingDetail, error) {
	building, err := s.AuthorizeBuilding(ctx, userID, buildingID)
	if err != nil {
		return nil, err
	}

	meters, err := s.repos.Meters.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list meters", err)
	}

	bills, err := s.repos.Bills.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list bills", err)
	}

	return &BuildingDetail{Building: building, Meters: meters, Bills: bills}, nil
}

// AuthorizeBuilding loads a building and verifies the caller belongs to its
// organization: absent building surfaces as not found, foreign building as
// forbidden.
func (s *Service) AuthorizeBuilding(ctx context.Context, userID, buildingID uuid.UUID) (*domain.Building, error) {
	building, err := s.repos.Buildings.GetByID(ctx, buildingID)
	if errors.Is(err, domain.ErrBuildingNotFound) {
		return nil, apperrors.NotFoundError("building not found").WithContext("building_id", buildingID.String())
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to load building", err)
	}

	if err := s.requireMembership(ctx, building.OrgID, userID); err != nil {
		return nil, err
	}
	return building, nil
}

// DashboardData aggregates everything the dashboard page renders.
type DashboardData struct {
	Stats       *domain.DashboardStats
	RecentBills []domain.BillWithMeter
	Prices      []domain.EnergyPrice
}

// Dashboard assembles KPI stats, the most recent bills, and current prices
// for the states the caller has buildings in.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardData, error) {
	now := s.clock.Now().UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	stats, err := s.repos.Dashboard.StatsByUser(ctx, userID, yearStart)
	if err != nil {
		return nil, apperrors.InternalError("failed to load dashboard stats", err)
	}

	recent, err := s.repos.Bills.ListRecentByUser(ctx, userID, recentBillsLimit)
	if err != nil {
		return nil, apperrors.InternalError("failed to list recent bills", err)
	}

	buildings, err := s.repos.Buildings.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list buildings", err)
	}

	var prices []domain.EnergyPrice
	if states := distinctStates(buildings); len(states) > 0 {
		prices, err = s.repos.Prices.ListByStates(ctx, states)
		if err != nil {
			return nil, apperrors.InternalError("failed to list energy prices", err)
		}
	}

	return &DashboardData{Stats: stats, RecentBills: recent, Prices: prices}, nil
}

func distinctStates(buildings []domain.Building) []string {
	seen := make(map[string]struct{})
	var states []string
	for _, b := range buildings {
		if b.State == "" {
			continue
		}
		if _, ok := seen[b.State]; ok {
			continue
		}
		seen[b.State] = struct{}{}
		states = append(states, b.State)
	}
	return states
}

// ListUploads returns the caller's upload queue, pending first.
func (s *Service) ListUploads(ctx context.Context, userID uuid.UUID) ([]domain.BillUpload, error) {
	uploads, err := s.repos.Uploads.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to list uploads", err)
	}
	return uploads, nil
}

// CreateUpload registers a source document for later manual entry. The bytes
// live in object storage under a fresh key; only the record is tracked here.
func (s *Service) CreateUpload(ctx context.Context, userID, orgID uuid.UUID, buildingID *uuid.UUID, fileName string) (*domain.BillUpload, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, apperrors.ValidationError("file name is required")
	}
	if err := s.requireMembership(ctx, orgID, userID); err != nil {
		return nil, err
	}
	if buildingID != nil {
		building, err := s.AuthorizeBuilding(ctx, userID, *buildingID)
		if err != nil {
			return nil, err
		}
		if building.OrgID != orgID {
			return nil, apperrors.ValidationError("building belongs to a different organization")
		}
	}

	storageKey := fmt.Sprintf("uploads/%s/%s", uuid.New(), fileName)
	upload, err := s.repos.Uploads.Create(ctx, orgID, buildingID, fileName, storageKey, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to create upload", err)
	}
	return upload, nil
}

// ListPrices serves the stored price table, optionally filtered by state
// and utility.
func (s *Service) ListPrices(ctx context.Context, state string, utility string) ([]domain.EnergyPrice, error) {
	state = strings.ToUpper(strings.TrimSpace(state))

	var parsedUtility domain.Utility
	if utility != "" {
		var err error
		parsedUtility, err = domain.ParseUtility(utility)
		if err != nil {
			return nil, apperrors.ValidationError("utility must be electric or gas")
		}
	}

	if state != "" && parsedUtility != "" {
		price, err := s.repos.Prices.Get(ctx, state, parsedUtility)
		if errors.Is(err, domain.ErrPriceNotFound) {
			return []domain.EnergyPrice{}, nil
		}
		if err != nil {
			return nil, apperrors.InternalError("failed to load energy price", err)
		}
		return []domain.EnergyPrice{*price}, nil
	}

	var prices []domain.EnergyPrice
	var err error
	if state != "" {
		prices, err = s.repos.Prices.ListByStates(ctx, []string{state})
	} else {
		prices, err = s.repos.Prices.List(ctx)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to list energy prices", err)
	}

	if parsedUtility != "" {
		filtered := prices[:0]
		for _, p := range prices {
			if p.Utility == parsedUtility {
				filtered = append(filtered, p)
			}
		}
		prices = filtered
	}
	return prices, nil
}

func (s *Service) requireMembership(ctx context.Context, orgID, userID uuid.UUID) error {
	isMember, err := s.repos.Orgs.IsMember(ctx, orgID, userID)
	if err != nil {
		return apperrors.InternalError("failed to check membership", err)
	}
	if !isMember {
		return apperrors.ForbiddenError("not a member of this organization").
			WithContext("org_id", orgID.String())
	}
	return nil
}
