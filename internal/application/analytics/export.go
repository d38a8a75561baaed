package analytics

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SnapshotsSheet  = "Snapshots"
	BreakdownsSheet = "Breakdowns"
)

var snapshotHeaders = []any{
	"period_start", "period_end", "cost_center_id", "cost_center_name", "basis_unit",
	"total_cost", "total_units", "rate", "status", "engine_version",
}

var breakdownHeaders = []any{
	"order_id", "order_reference", "order_date", "customer_name", "origin", "destination", "distance_km",
	"period_start", "period_end", "vehicle_alloc", "overhead_alloc", "direct_cost",
	"total_cost", "revenue", "profit", "margin", "status",
}

// Export writes the history selected by q as an XLSX workbook. Breakdowns are
// always included.
func (s *HistoryService) Export(ctx context.Context, q HistoryQuery, w io.Writer) error {
	q.IncludeBreakdowns = true
	view, err := s.History(ctx, q)
	if err != nil {
		return err
	}
	return WriteHistoryXLSX(w, view)
}

// WriteHistoryXLSX renders view into a workbook with a Snapshots and a
// Breakdowns sheet. Decimals are written as strings.
func WriteHistoryXLSX(w io.Writer, view *HistoryView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SnapshotsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(BreakdownsSheet); err != nil {
		return err
	}

	if err := writeRow(f, SnapshotsSheet, 1, snapshotHeaders); err != nil {
		return err
	}
	for i, s := range view.Snapshots {
		row := []any{
			s.PeriodStart, s.PeriodEnd, s.CostCenterID.String(), s.CostCenterName, s.BasisUnit,
			s.TotalCost.String(), s.TotalUnits.String(), s.Rate.String(), s.Status, s.EngineVersion,
		}
		if err := writeRow(f, SnapshotsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, BreakdownsSheet, 1, breakdownHeaders); err != nil {
		return err
	}
	for i, b := range view.Breakdowns {
		row := []any{
			b.OrderID.String(), b.OrderReference, deref(b.OrderDate), deref(b.CustomerName),
			deref(b.Origin), deref(b.Destination), decimalOrEmpty(b.DistanceKm),
			b.PeriodStart, b.PeriodEnd, b.VehicleAlloc.String(), b.OverheadAlloc.String(), b.DirectCost.String(),
			b.TotalCost.String(), b.Revenue.String(), b.Profit.String(), b.Margin.String(), b.Status,
		}
		if err := writeRow(f, BreakdownsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decimalOrEmpty(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
