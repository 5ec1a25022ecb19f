package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
)

func (s *Server) registerPageRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/dashboard", s.handleDashboard, s.requirePageAuth, csrfMiddleware)
	s.echo.GET("/orgs", s.handleOrgsPage, s.requirePageAuth, csrfMiddleware)
	s.echo.POST("/orgs", s.handleCreateOrg, s.requirePageAuth, csrfMiddleware)
	s.echo.GET("/buildings", s.handleBuildingsPage, s.requirePageAuth, csrfMiddleware)
	s.echo.POST("/buildings", s.handleCreateBuilding, s.requirePageAuth, csrfMiddleware)
	s.echo.GET("/buildings/:id", s.handleBuildingDetail, s.requirePageAuth, csrfMiddleware)
	s.echo.POST("/buildings/:id", s.handleUpdateBuilding, s.requirePageAuth, csrfMiddleware)
	s.echo.GET("/buildings/:id/bills/new", s.handleBillForm, s.requirePageAuth, csrfMiddleware)
	s.echo.POST("/buildings/:id/bills", s.handleCreateBill, s.requirePageAuth, csrfMiddleware)
	s.echo.GET("/uploads", s.handleUploadsPage, s.requirePageAuth, csrfMiddleware)
}

func contextUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("invalid user ID in context", nil)
	}
	return userID, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID format").WithField(name, raw)
	}
	return id, nil
}

func (s *Server) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	user, err := s.app.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	data, err := s.app.Dashboard(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "dashboard.html", map[string]any{
		"User":        user,
		"Stats":       data.Stats,
		"RecentBills": data.RecentBills,
		"Prices":      data.Prices,
		"CSRFToken":   c.Get("csrf"),
	})
}

func (s *Server) handleOrgsPage(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	orgs, err := s.app.ListOrganizations(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "orgs.html", map[string]any{
		"Orgs":      orgs,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleCreateOrg(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	org, err := s.app.CreateOrganization(ctx, userID, c.FormValue("name"))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Organization created", "org_id", org.ID, "user_id", userID)

	if err := c.Redirect(http.StatusFound, "/orgs"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleBuildingsPage(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	buildings, err := s.app.ListBuildings(ctx, userID)
	if err != nil {
		return err
	}

	orgs, err := s.app.ListOrganizations(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "buildings.html", map[string]any{
		"Buildings": buildings,
		"Orgs":      orgs,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) buildingParamsFromForm(c echo.Context) (app.BuildingParams, error) {
	squareFeet, err := formInt32(c, "square_feet")
	if err != nil {
		return app.BuildingParams{}, err
	}

	return app.BuildingParams{
		Name:       c.FormValue("name"),
		Address:    strings.TrimSpace(c.FormValue("address")),
		State:      c.FormValue("state"),
		SquareFeet: squareFeet,
	}, nil
}

func (s *Server) handleCreateBuilding(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	orgID, err := uuid.Parse(c.FormValue("org_id"))
	if err != nil {
		return apperrors.ValidationError("invalid organization ID").WithField("org_id", c.FormValue("org_id"))
	}

	params, err := s.buildingParamsFromForm(c)
	if err != nil {
		return err
	}
	params.OrgID = orgID

	building, err := s.app.CreateBuilding(ctx, userID, params)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Building created", "building_id", building.ID, "org_id", orgID, "user_id", userID)

	if err := c.Redirect(http.StatusFound, "/buildings/"+building.ID.String()); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleBuildingDetail(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	buildingID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	detail, err := s.app.GetBuildingDetail(ctx, userID, buildingID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "building_detail.html", map[string]any{
		"Building":  detail.Building,
		"Meters":    detail.Meters,
		"Bills":     detail.Bills,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleUpdateBuilding(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	buildingID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	params, err := s.buildingParamsFromForm(c)
	if err != nil {
		return err
	}

	building, err := s.app.UpdateBuilding(ctx, userID, buildingID, params)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Building updated", "building_id", building.ID, "user_id", userID)

	if err := c.Redirect(http.StatusFound, "/buildings/"+buildingID.String()); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleBillForm(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	buildingID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	detail, err := s.app.GetBuildingDetail(ctx, userID, buildingID)
	if err != nil {
		return err
	}

	uploads, err := s.app.ListUploads(ctx, userID)
	if err != nil {
		return err
	}

	// Offer only pending documents from the building's own organization for linkage.
	var pending []domain.BillUpload
	for _, u := range uploads {
		if u.Status == domain.UploadPending && u.OrgID == detail.Building.OrgID {
			pending = append(pending, u)
		}
	}

	return s.renderTemplate(c, "bill_new.html", map[string]any{
		"Building":       detail.Building,
		"Meters":         detail.Meters,
		"PendingUploads": pending,
		"CSRFToken":      c.Get("csrf"),
	})
}

// handleCreateBill routes the manual entry form through the same reconciler
// as the bulk API, as a batch of one.
func (s *Server) handleCreateBill(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	buildingID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	item := app.IngestItem{
		BuildingID:  buildingID.String(),
		MeterNo:     c.FormValue("meter_no"),
		Provider:    strings.TrimSpace(c.FormValue("provider")),
		PeriodStart: c.FormValue("period_start"),
		PeriodEnd:   c.FormValue("period_end"),
	}

	for name, dst := range map[string]**float64{
		"total_cost":   &item.TotalCost,
		"demand_cost":  &item.DemandCost,
		"usage_kwh":    &item.UsageKWH,
		"usage_therms": &item.UsageTherms,
		"usage_mcf":    &item.UsageMCF,
		"usage_mmbtu":  &item.UsageMMBTU,
	} {
		v, err := formFloat(c, name)
		if err != nil {
			return err
		}
		*dst = v
	}

	req := app.IngestRequest{
		Utility:      c.FormValue("utility"),
		BillUploadID: c.FormValue("bill_upload_id"),
		Items:        []app.IngestItem{item},
	}

	resp, err := s.app.IngestBills(ctx, userID, req)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Bill entered via form",
		"building_id", buildingID,
		"bill_id", resp.Results[0].BillID,
		"created", resp.Results[0].CreatedBill,
		"user_id", userID,
	)

	if err := c.Redirect(http.StatusFound, "/buildings/"+buildingID.String()); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleUploadsPage(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	uploads, err := s.app.ListUploads(ctx, userID)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "uploads.html", map[string]any{
		"Uploads":   uploads,
		"CSRFToken": c.Get("csrf"),
	})
}

// formInt32 parses an optional whole-number form field; empty means absent.
func formInt32(c echo.Context, name string) (*int32, error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("%s must be a whole number", name)).WithField(name, raw)
	}
	n := int32(v)
	return &n, nil
}

// formFloat parses an optional numeric form field; empty means absent.
func formFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("%s must be a number", name)).WithField(name, raw)
	}
	return &v, nil
}
