package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n0hyd/energy-app-sub001/internal/domain"
	apperrors "github.com/n0hyd/energy-app-sub001/internal/errors"
	"github.com/n0hyd/energy-app-sub001/internal/metrics"
)

const periodDateLayout = "2006-01-02"

// IngestRequest is the bulk bill ingestion payload. One batch carries bills
// of a single utility type; unit fields that don't match the utility are
// stored as given.
type IngestRequest struct {
	Utility      string       `json:"utility"`
	BillUploadID string       `json:"billUploadId,omitempty"`
	Items        []IngestItem `json:"items"`
}

type IngestItem struct {
	BuildingID  string   `json:"buildingId"`
	MeterNo     string   `json:"meter_no"`
	Provider    string   `json:"provider,omitempty"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	TotalCost   *float64 `json:"total_cost,omitempty"`
	DemandCost  *float64 `json:"demand_cost,omitempty"`
	UsageKWH    *float64 `json:"usage_kwh,omitempty"`
	UsageTherms *float64 `json:"usage_therms,omitempty"`
	UsageMCF    *float64 `json:"usage_mcf,omitempty"`
	UsageMMBTU  *float64 `json:"usage_mmbtu,omitempty"`
}

type IngestSummary struct {
	ItemsReceived int `json:"itemsReceived"`
	BillsCreated  int `json:"billsCreated"`
	UsageUpserted int `json:"usageUpserted"`
}

type IngestItemResult struct {
	BuildingID   uuid.UUID `json:"buildingId"`
	MeterID      uuid.UUID `json:"meterId"`
	BillID       uuid.UUID `json:"billId"`
	CreatedBill  bool      `json:"createdBill"`
	CreatedUsage bool      `json:"createdUsage"`
}

type IngestResponse struct {
	OK      bool               `json:"ok"`
	Summary IngestSummary      `json:"summary"`
	Results []IngestItemResult `json:"results"`
}

// ingestItem is the validated form of an IngestItem.
type ingestItem struct {
	buildingID  uuid.UUID
	meterNo     string
	provider    string
	periodStart time.Time
	periodEnd   time.Time
	totalCost   *float64
	demandCost  *float64
	usage       domain.Usage
}

type ingestPlan struct {
	utility  domain.Utility
	uploadID *uuid.UUID
	items    []ingestItem
}

// IngestBills reconciles a batch of bill rows against the meter, bill and
// usage tables. All validation and reference resolution happens before the
// first write; after that, items execute sequentially in input order with no
// surrounding transaction, so items written before a failure remain written.
func (s *Service) IngestBills(ctx context.Context, userID uuid.UUID, req IngestRequest) (*IngestResponse, error) {
	start := s.clock.Now()

	plan, err := s.validateIngest(ctx, userID, req)
	if err != nil {
		metrics.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	metrics.IngestBatchSize.Observe(float64(len(plan.items)))

	resp, err := s.processIngest(ctx, plan)
	metrics.IngestBatchDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		metrics.IngestBatchesTotal.WithLabelValues("persistence_error").Inc()
		return nil, err
	}

	metrics.IngestBatchesTotal.WithLabelValues("ok").Inc()
	slog.Info("Bill ingestion batch processed",
		"user_id", userID.String(),
		"items", resp.Summary.ItemsReceived,
		"bills_created", resp.Summary.BillsCreated,
		"usage_upserted", resp.Summary.UsageUpserted,
	)
	return resp, nil
}

// validateIngest checks syntax item by item, then resolves every referenced
// record. Nothing is written here.
func (s *Service) validateIngest(ctx context.Context, userID uuid.UUID, req IngestRequest) (*ingestPlan, error) {
	utility, err := domain.ParseUtility(req.Utility)
	if err != nil {
		return nil, apperrors.ValidationError("utility must be electric or gas")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.ValidationError("items must not be empty")
	}

	items := make([]ingestItem, 0, len(req.Items))
	for i, raw := range req.Items {
		item, err := parseIngestItem(i, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	// Resolve each distinct building once, in first-appearance order.
	seen := make(map[uuid.UUID]struct{})
	for _, item := range items {
		if _, ok := seen[item.buildingID]; ok {
			continue
		}
		seen[item.buildingID] = struct{}{}
		if _, err := s.AuthorizeBuilding(ctx, userID, item.buildingID); err != nil {
			return nil, err
		}
	}

	plan := &ingestPlan{utility: utility, items: items}
	if req.BillUploadID != "" {
		uploadID, err := uuid.Parse(req.BillUploadID)
		if err != nil {
			return nil, apperrors.ValidationError("billUploadId is not a valid UUID")
		}
		upload, err := s.repos.Uploads.GetByID(ctx, uploadID)
		if errors.Is(err, domain.ErrUploadNotFound) {
			return nil, apperrors.NotFoundError("bill upload not found").WithContext("upload_id", uploadID.String())
		}
		if err != nil {
			return nil, apperrors.InternalError("failed to load bill upload", err)
		}
		if err := s.requireMembership(ctx, upload.OrgID, userID); err != nil {
			return nil, err
		}
		plan.uploadID = &upload.ID
	}

	return plan, nil
}

func parseIngestItem(index int, raw IngestItem) (ingestItem, error) {
	var item ingestItem

	if raw.BuildingID == "" {
		return item, itemError(index, "buildingId is required")
	}
	buildingID, err := uuid.Parse(raw.BuildingID)
	if err != nil {
		return item, itemError(index, "buildingId is not a valid UUID")
	}

	meterNo := strings.TrimSpace(raw.MeterNo)
	if meterNo == "" {
		return item, itemError(index, "meter_no is required")
	}
	if domain.NormalizeMeterLabel(meterNo) == "" {
		return item, itemError(index, "meter_no must contain at least one letter or digit")
	}

	if raw.PeriodStart == "" {
		return item, itemError(index, "period_start is required")
	}
	periodStart, err := time.Parse(periodDateLayout, raw.PeriodStart)
	if err != nil {
		return item, itemError(index, "period_start must be a YYYY-MM-DD date")
	}
	if raw.PeriodEnd == "" {
		return item, itemError(index, "period_end is required")
	}
	periodEnd, err := time.Parse(periodDateLayout, raw.PeriodEnd)
	if err != nil {
		return item, itemError(index, "period_end must be a YYYY-MM-DD date")
	}
	if periodEnd.Before(periodStart) {
		return item, itemError(index, "period_end is before period_start")
	}

	return ingestItem{
		buildingID:  buildingID,
		meterNo:     meterNo,
		provider:    strings.TrimSpace(raw.Provider),
		periodStart: periodStart,
		periodEnd:   periodEnd,
		totalCost:   raw.TotalCost,
		demandCost:  raw.DemandCost,
		usage: domain.Usage{
			KWH:    raw.UsageKWH,
			Therms: raw.UsageTherms,
			MCF:    raw.UsageMCF,
			MMBTU:  raw.UsageMMBTU,
		},
	}, nil
}

func itemError(index int, message string) *apperrors.Error {
	return apperrors.ValidationError(fmt.Sprintf("item %d: %s", index, message)).
		WithContext("item", index)
}

func (s *Service) processIngest(ctx context.Context, plan *ingestPlan) (*IngestResponse, error) {
	summary := IngestSummary{ItemsReceived: len(plan.items)}
	results := make([]IngestItemResult, 0, len(plan.items))

	for _, item := range plan.items {
		meter, err := s.reconcileMeter(ctx, plan.utility, item)
		if err != nil {
			metrics.IngestItemsTotal.WithLabelValues("failed").Inc()
			return nil, apperrors.InternalError(err.Error(), err)
		}

		bill, createdBill, err := s.reconcileBill(ctx, plan.uploadID, meter.ID, item)
		if err != nil {
			metrics.IngestItemsTotal.WithLabelValues("failed").Inc()
			return nil, apperrors.InternalError(err.Error(), err)
		}
		if createdBill {
			summary.BillsCreated++
			metrics.IngestItemsTotal.WithLabelValues("bill_created").Inc()
		} else {
			metrics.IngestItemsTotal.WithLabelValues("bill_updated").Inc()
		}

		createdUsage := false
		if !item.usage.IsZero() {
			createdUsage, err = s.repos.Bills.UpsertUsage(ctx, bill.ID, item.usage)
			if err != nil {
				return nil, apperrors.InternalError(err.Error(), err)
			}
			summary.UsageUpserted++
			if createdUsage {
				metrics.IngestUsageUpsertsTotal.WithLabelValues("created").Inc()
			} else {
				metrics.IngestUsageUpsertsTotal.WithLabelValues("updated").Inc()
			}
		}

		results = append(results, IngestItemResult{
			BuildingID:   item.buildingID,
			MeterID:      meter.ID,
			BillID:       bill.ID,
			CreatedBill:  createdBill,
			CreatedUsage: createdUsage,
		})
	}

	if plan.uploadID != nil {
		if err := s.repos.Uploads.MarkEntered(ctx, *plan.uploadID); err != nil {
			return nil, apperrors.InternalError(err.Error(), err)
		}
	}

	return &IngestResponse{OK: true, Summary: summary, Results: results}, nil
}

// reconcileMeter finds the meter by its normalized label, creating it on
// first sight. A differing non-empty provider updates the stored one; an
// identical or empty provider writes nothing.
func (s *Service) reconcileMeter(ctx context.Context, utility domain.Utility, item ingestItem) (*domain.Meter, error) {
	meter, err := s.repos.Meters.GetByLabel(ctx, item.buildingID, item.meterNo)
	if errors.Is(err, domain.ErrMeterNotFound) {
		return s.repos.Meters.Create(ctx, item.buildingID, item.meterNo, utility, item.provider)
	}
	if err != nil {
		return nil, err
	}

	if item.provider != "" && item.provider != meter.Provider {
		if err := s.repos.Meters.UpdateProvider(ctx, meter.ID, item.provider); err != nil {
			return nil, err
		}
		meter.Provider = item.provider
	}
	return meter, nil
}

// reconcileBill matches on the exact period pair. An existing bill gets its
// costs overwritten with the item's values, nil included; a missing one is
// inserted fresh.
func (s *Service) reconcileBill(ctx context.Context, uploadID *uuid.UUID, meterID uuid.UUID, item ingestItem) (*domain.Bill, bool, error) {
	bill, err := s.repos.Bills.GetByPeriod(ctx, meterID, item.periodStart, item.periodEnd)
	if errors.Is(err, domain.ErrBillNotFound) {
		bill, err = s.repos.Bills.Create(ctx, domain.CreateBillParams{
			MeterID:     meterID,
			BuildingID:  item.buildingID,
			PeriodStart: item.periodStart,
			PeriodEnd:   item.periodEnd,
			TotalCost:   item.totalCost,
			DemandCost:  item.demandCost,
			UploadID:    uploadID,
		})
		if err != nil {
			return nil, false, err
		}
		return bill, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	bill, err = s.repos.Bills.UpdateCosts(ctx, bill.ID, item.totalCost, item.demandCost, uploadID)
	if err != nil {
		return nil, false, err
	}
	return bill, false, nil
}
