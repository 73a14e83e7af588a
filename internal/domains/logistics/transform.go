package logistics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// Weight thresholds in kg for shipment classification.
const (
	parcelMaxKg = 30.0
	ltlMaxKg    = 9000.0
)

// ClassifyShipmentMode determines shipping mode from weight and cargo type.
func ClassifyShipmentMode(weightKg float64, isHazmat bool) string {
	switch {
	case isHazmat && weightKg <= parcelMaxKg:
		return "HAZMAT_PARCEL"
	case isHazmat:
		return "HAZMAT_FREIGHT"
	case weightKg <= parcelMaxKg:
		return "PARCEL"
	case weightKg <= ltlMaxKg:
		return "LTL"
	default:
		return "FTL"
	}
}

// NormalizeStatus maps raw carrier status strings onto the canonical set.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in transit", "in-transit", "intransit":
		return "IN_TRANSIT"
	case "delivered", "complete", "completed":
		return "DELIVERED"
	case "pending", "created", "new":
		return "PENDING"
	case "cancel", "cancelled", "canceled", "void":
		return "CANCELLED"
	case "return", "returned", "rts":
		return "RETURNED"
	case "exception", "hold", "delayed":
		return "EXCEPTION"
	default:
		return "UNKNOWN_" + strings.ToUpper(strings.TrimSpace(raw))
	}
}

// NormalizeShipments cleans columns, classifies shipping modes, and
// normalizes statuses. Missing required columns are a hard error.
func (p *Pipeline) NormalizeShipments(ctx context.Context, raw dataframe.DataFrame) (dataframe.DataFrame, error) {
	df := etl.NormalizeColumns(raw, nil)

	cols := map[string]struct{}{}
	for _, name := range df.Names() {
		cols[name] = struct{}{}
	}
	var missing []string
	for _, required := range []string{"shipment_id", "weight_kg", "status", "origin", "destination"} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return dataframe.DataFrame{}, fmt.Errorf("missing required columns: %v", missing)
	}
	_, hasHazmat := cols["hazmat_flag"]

	now := time.Now().UTC().Format(time.RFC3339)
	rows := df.Maps()
	for _, row := range rows {
		weight := etl.AsFloat(row["weight_kg"])
		row["weight_kg"] = weight

		isHazmat := false
		if hasHazmat {
			flag := strings.ToLower(etl.AsString(row["hazmat_flag"]))
			isHazmat = flag == "true" || flag == "1" || flag == "yes"
		}
		row["is_hazmat"] = isHazmat
		row["shipping_mode"] = ClassifyShipmentMode(weight, isHazmat)
		row["status"] = NormalizeStatus(etl.AsString(row["status"]))
		row["normalized_at"] = now
	}
	return etl.FrameFromRows(rows), nil
}
