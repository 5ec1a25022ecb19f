package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
	"github.com/n0hyd/energy-app-sub001/internal/espm"
)

func (s *Server) registerBenchmarkRoutes() {
	s.echo.GET("/api/espm/account", s.handleBenchmarkAccount, s.requireAPIAuth)
	s.echo.GET("/api/espm/properties", s.handleBenchmarkProperties, s.requireAPIAuth)
	s.echo.POST("/api/espm/properties", s.handleBenchmarkCreateProperty, s.requireAPIAuth)
}

// benchmarkError maps client failures for the proxy routes: upstream answers
// become gateway errors carrying the upstream message, everything else is an
// internal failure.
func benchmarkError(err error) error {
	var upstream *espm.UpstreamError
	if errors.As(err, &upstream) {
		return apperrors.ExternalError(upstream.Message, err).WithField("upstream_status", upstream.StatusCode)
	}
	return apperrors.ExternalError("benchmarking service unreachable", err)
}

func (s *Server) handleBenchmarkAccount(c echo.Context) error {
	ctx := c.Request().Context()

	if s.benchmark == nil {
		return apperrors.UnavailableError("benchmarking integration is not configured")
	}

	account, err := s.benchmark.GetAccount(ctx)
	if err != nil {
		return benchmarkError(err)
	}

	resp := map[string]any{
		"ok": true,
		"account": map[string]any{
			"id":       account.ID,
			"username": account.Username,
			"email":    account.Email,
		},
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleBenchmarkProperties(c echo.Context) error {
	ctx := c.Request().Context()

	if s.benchmark == nil {
		return apperrors.UnavailableError("benchmarking integration is not configured")
	}

	account, err := s.benchmark.GetAccount(ctx)
	if err != nil {
		return benchmarkError(err)
	}

	links, err := s.benchmark.ListProperties(ctx, account.ID)
	if err != nil {
		return benchmarkError(err)
	}

	properties := make([]map[string]any, 0, len(links))
	for _, link := range links {
		properties = append(properties, map[string]any{
			"id":   link.ID,
			"hint": link.Hint,
		})
	}

	if err := c.JSON(http.StatusOK, map[string]any{"ok": true, "properties": properties}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleBenchmarkCreateProperty pushes one of the caller's buildings to the
// benchmarking service and returns the remote property id.
func (s *Server) handleBenchmarkCreateProperty(c echo.Context) error {
	ctx := c.Request().Context()

	if s.benchmark == nil {
		return apperrors.UnavailableError("benchmarking integration is not configured")
	}

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		BuildingID string `json:"buildingId"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	buildingID, err := uuid.Parse(req.BuildingID)
	if err != nil {
		return apperrors.ValidationError("invalid building ID").WithField("buildingId", req.BuildingID)
	}

	building, err := s.app.AuthorizeBuilding(ctx, userID, buildingID)
	if err != nil {
		return err
	}

	account, err := s.benchmark.GetAccount(ctx)
	if err != nil {
		return benchmarkError(err)
	}

	propertyID, err := s.benchmark.CreateProperty(ctx, account.ID, buildingToProperty(building))
	if err != nil {
		return benchmarkError(err)
	}

	slog.InfoContext(ctx, "Building pushed to benchmarking service",
		"building_id", buildingID,
		"property_id", propertyID,
		"user_id", userID,
	)

	if err := c.JSON(http.StatusOK, map[string]any{"ok": true, "propertyId": propertyID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func buildingToProperty(b *domain.Building) espm.Property {
	var squareFeet int64
	if b.SquareFeet != nil {
		squareFeet = int64(*b.SquareFeet)
	}

	return espm.Property{
		Name:            b.Name,
		PrimaryFunction: "Office",
		Address: espm.Address{
			Address1: b.Address,
			State:    b.State,
			Country:  "US",
		},
		ConstructionStatus:  "Existing",
		GrossFloorArea:      espm.GrossFloorArea{Units: "Square Feet", Value: squareFeet},
		OccupancyPercentage: 100,
		IsFederalProperty:   false,
	}
}
