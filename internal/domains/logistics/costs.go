package logistics

import (
	"context"
	"math"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// baseRates are list prices per shipping mode before surcharges.
var baseRates = map[string]float64{
	"PARCEL":         8.50,
	"LTL":            45.00,
	"FTL":            950.00,
	"HAZMAT_PARCEL":  24.00,
	"HAZMAT_FREIGHT": 180.00,
}

const (
	fuelSurchargePct     = 0.08
	residentialSurcharge = 4.75
)

// CostBreakdown itemizes the charges for one shipment.
type CostBreakdown struct {
	Base                 float64
	FuelSurcharge        float64
	ResidentialSurcharge float64
	WeightSurcharge      float64
	Total                float64
}

// ComputeRateTier classifies a shipment into a pricing tier.
func ComputeRateTier(weightKg float64, zone, serviceLevel string) string {
	switch {
	case serviceLevel == "express" && weightKg > 30:
		return "EXPRESS_HEAVY"
	case serviceLevel == "express":
		return "EXPRESS_LIGHT"
	case zone == "LOCAL" && serviceLevel == "standard":
		return "LOCAL_STANDARD"
	case zone == "REGIONAL" && serviceLevel == "standard" && weightKg > 100:
		return "REGIONAL_HEAVY"
	case zone == "REGIONAL" && serviceLevel == "standard":
		return "REGIONAL_STANDARD"
	case zone == "NATIONAL" || zone == "CROSS_BORDER":
		if weightKg > 500 {
			return "LONG_HAUL_HEAVY"
		}
		return "LONG_HAUL_STANDARD"
	case zone == "INTERNATIONAL":
		return "INTERNATIONAL"
	default:
		return "STANDARD"
	}
}

func distanceMultiplier(miles float64) float64 {
	switch {
	case miles <= 100:
		return 1.0
	case miles <= 500:
		return 1.3
	case miles <= 2000:
		return 1.8
	default:
		return 2.5
	}
}

// CalculateCost builds the itemized cost for one shipment.
func CalculateCost(mode string, distanceMiles, weightKg float64, isResidential bool) CostBreakdown {
	base, ok := baseRates[mode]
	if !ok {
		base = baseRates["PARCEL"]
	}
	base *= distanceMultiplier(distanceMiles)

	fuel := base * fuelSurchargePct
	residential := 0.0
	if isResidential {
		residential = residentialSurcharge
	}
	weightSurcharge := 0.0
	if weightKg > 30 {
		weightSurcharge = (weightKg - 30) * 0.12
	}

	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return CostBreakdown{
		Base:                 r(base),
		FuelSurcharge:        r(fuel),
		ResidentialSurcharge: r(residential),
		WeightSurcharge:      r(weightSurcharge),
		Total:                r(base + fuel + residential + weightSurcharge),
	}
}

// AnalyzeShippingCosts attaches rate tiers and cost breakdowns to every
// shipment.
func (p *Pipeline) AnalyzeShippingCosts(ctx context.Context, shipments dataframe.DataFrame) (dataframe.DataFrame, error) {
	rows := shipments.Maps()
	for _, row := range rows {
		weight := etl.AsFloat(row["weight_kg"])
		zone := etl.AsString(row["zone"])
		if zone == "" {
			zone = "LOCAL"
		}
		service := etl.AsString(row["service_level"])
		if service == "" {
			service = "standard"
		}
		row["rate_tier"] = ComputeRateTier(weight, zone, service)

		breakdown := CalculateCost(
			etl.AsString(row["shipping_mode"]),
			etl.AsFloat(row["distance_miles"]),
			weight,
			isTrue(row["is_residential"]),
		)
		row["cost_base"] = breakdown.Base
		row["cost_fuel"] = breakdown.FuelSurcharge
		row["cost_residential"] = breakdown.ResidentialSurcharge
		row["cost_weight"] = breakdown.WeightSurcharge
		row["cost_total"] = breakdown.Total
	}
	return etl.FrameFromRows(rows), nil
}
