package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
)

func (s *Server) registerAPIRoutes(ingestLimiter echo.MiddlewareFunc) {
	s.echo.POST("/api/bills/ingest", s.handleIngestBills, ingestLimiter, middleware.BodyLimit(ingestBodyLimit), s.requireAPIAuth)
	s.echo.GET("/api/prices", s.handleListPrices, s.requireAPIAuth)
	s.echo.POST("/api/prices/sync", s.handleTriggerPriceSync, s.requireAPIAuth)
	s.echo.POST("/api/uploads", s.handleCreateUpload, s.requireAPIAuth)
}

func (s *Server) handleIngestBills(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	var req app.IngestRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	resp, err := s.app.IngestBills(ctx, userID, req)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type priceResponse struct {
	State   string  `json:"state"`
	Utility string  `json:"utility"`
	Price   float64 `json:"price"`
	Units   string  `json:"units"`
	Period  string  `json:"period"`
}

func (s *Server) handleListPrices(c echo.Context) error {
	ctx := c.Request().Context()

	prices, err := s.app.ListPrices(ctx, c.QueryParam("state"), c.QueryParam("utility"))
	if err != nil {
		return err
	}

	out := make([]priceResponse, 0, len(prices))
	for _, p := range prices {
		out = append(out, priceResponse{
			State:   p.State,
			Utility: string(p.Utility),
			Price:   p.Price,
			Units:   p.Units,
			Period:  p.Period,
		})
	}

	if err := c.JSON(http.StatusOK, map[string]any{"ok": true, "prices": out}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTriggerPriceSync(c echo.Context) error {
	ctx := c.Request().Context()

	if s.syncer == nil {
		return apperrors.UnavailableError("price sync is not configured")
	}

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	result, err := s.syncer.Sync(ctx)
	if err != nil {
		return apperrors.ExternalError("price sync failed", err)
	}

	slog.InfoContext(ctx, "Manual price sync completed",
		"user_id", userID,
		"electric_rows", result.Electric,
		"gas_rows", result.Gas,
	)

	if err := c.JSON(http.StatusOK, map[string]any{"ok": true, "synced": result}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type createUploadRequest struct {
	OrgID      string `json:"orgId"`
	BuildingID string `json:"buildingId,omitempty"`
	FileName   string `json:"fileName"`
}

type uploadResponse struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"orgId"`
	BuildingID *uuid.UUID `json:"buildingId,omitempty"`
	FileName   string     `json:"fileName"`
	StorageKey string     `json:"storageKey"`
	Status     string     `json:"status"`
}

// handleCreateUpload registers a source document record. The document bytes
// are stored out of band; the returned storage key tells the client where to
// put them.
func (s *Server) handleCreateUpload(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := contextUserID(c)
	if err != nil {
		return err
	}

	var req createUploadRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		return apperrors.ValidationError("invalid organization ID").WithField("orgId", req.OrgID)
	}

	var buildingID *uuid.UUID
	if req.BuildingID != "" {
		id, err := uuid.Parse(req.BuildingID)
		if err != nil {
			return apperrors.ValidationError("invalid building ID").WithField("buildingId", req.BuildingID)
		}
		buildingID = &id
	}

	upload, err := s.app.CreateUpload(ctx, userID, orgID, buildingID, req.FileName)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Bill upload registered", "upload_id", upload.ID, "org_id", orgID, "user_id", userID)

	resp := map[string]any{"ok": true, "upload": toUploadResponse(upload)}
	if err := c.JSON(http.StatusCreated, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func toUploadResponse(u *domain.BillUpload) uploadResponse {
	return uploadResponse{
		ID:         u.ID,
		OrgID:      u.OrgID,
		BuildingID: u.BuildingID,
		FileName:   u.FileName,
		StorageKey: u.StorageKey,
		Status:     string(u.Status),
	}
}
