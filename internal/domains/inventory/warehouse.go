package inventory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// WarehouseProfile describes one physical warehouse.
type WarehouseProfile struct {
	WarehouseID   string
	Name          string
	Region        string
	CapacityUnits int
	Zones         []string
	IsActive      bool
}

// TODO: move the registry to a config table (ticket INV-442)
var warehouseRegistry = map[string]WarehouseProfile{
	"DC-001": {WarehouseID: "DC-001", Name: "Newark DC", Region: "us-east", CapacityUnits: 500_000, Zones: []string{"ambient", "chilled"}, IsActive: true},
	"DC-002": {WarehouseID: "DC-002", Name: "Dallas DC", Region: "us-west", CapacityUnits: 750_000, Zones: []string{"ambient", "chilled", "frozen"}, IsActive: true},
	"FC-010": {WarehouseID: "FC-010", Name: "Phoenix FC", Region: "us-west", CapacityUnits: 200_000, Zones: []string{"ambient"}, IsActive: true},
	"CS-003": {WarehouseID: "CS-003", Name: "Chicago Cold", Region: "us-east", CapacityUnits: 100_000, Zones: []string{"chilled", "frozen"}, IsActive: true},
	"BK-050": {WarehouseID: "BK-050", Name: "Atlanta Bulk", Region: "us-east", CapacityUnits: 1_000_000, Zones: []string{"ambient"}, IsActive: true},
}

// StorageZone maps a product category to the zone it must be stored in.
func StorageZone(category string) string {
	switch strings.ToLower(category) {
	case "frozen_food", "ice_cream":
		return "frozen"
	case "dairy", "produce", "deli":
		return "chilled"
	case "chemicals", "flammable", "lithium":
		return "hazmat"
	default:
		return "ambient"
	}
}

func utilizationStatus(u float64) string {
	switch {
	case u >= 0.95:
		return "at_capacity"
	case u >= 0.80:
		return "high"
	case u >= 0.50:
		return "normal"
	case u >= 0.20:
		return "low"
	default:
		return "near_empty"
	}
}

// ComputeUtilization calculates capacity utilization per warehouse from
// current on-hand units. Warehouses absent from the registry are ignored.
func (p *Pipeline) ComputeUtilization(ctx context.Context, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	totals := map[string]float64{}
	for _, row := range df.Maps() {
		totals[etl.AsString(row["warehouse_id"])] += etl.AsFloat(row["quantity"])
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	checkedAt := time.Now().Format(time.RFC3339)
	var out []etl.Row
	for _, id := range ids {
		profile, ok := warehouseRegistry[id]
		if !ok {
			continue
		}
		utilization := totals[id] / float64(profile.CapacityUnits)
		out = append(out, etl.Row{
			"warehouse_id":    id,
			"name":            profile.Name,
			"region":          profile.Region,
			"capacity_units":  profile.CapacityUnits,
			"units_on_hand":   int(totals[id]),
			"utilization_pct": math.Round(utilization*10000) / 10000,
			"status":          utilizationStatus(utilization),
			"checked_at":      checkedAt,
		})
	}

	p.logger.InfoContext(ctx, "computed warehouse utilization", slog.Int("warehouses", len(out)))
	return etl.FrameFromRows(out), nil
}
