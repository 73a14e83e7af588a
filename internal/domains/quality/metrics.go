package quality

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// opportunitiesPerUnit is the defect opportunity count assumed per
// inspected unit for DPMO.
const opportunitiesPerUnit = 5

// sigmaThresholds maps sigma levels to their minimum DPMO.
var sigmaThresholds = []struct {
	sigma float64
	dpmo  float64
}{
	{1, 691_462},
	{2, 308_538},
	{3, 66_807},
	{4, 6_210},
	{5, 233},
	{6, 3.4},
}

// kpiTargets are the plant-level quality goals.
var kpiTargets = struct {
	PPM            float64
	DPMO           float64
	FirstPassYield float64
}{
	PPM:            500,
	DPMO:           3_400,
	FirstPassYield: 0.95,
}

// PPM is parts per million defective.
func PPM(defects, unitsInspected int) float64 {
	if unitsInspected == 0 {
		return 0
	}
	return float64(defects) / float64(unitsInspected) * 1_000_000
}

// DPMO is defects per million opportunities.
func DPMO(defects, units int) float64 {
	opportunities := units * opportunitiesPerUnit
	if opportunities == 0 {
		return 0
	}
	return float64(defects) / float64(opportunities) * 1_000_000
}

// EstimateSigma approximates the sigma level from DPMO.
func EstimateSigma(dpmo float64) float64 {
	for _, entry := range sigmaThresholds {
		if dpmo >= entry.dpmo {
			return entry.sigma
		}
	}
	return 6
}

// InspectionYield is the fraction of units passing inspection.
func InspectionYield(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total)
}

// ComputeQualityKPIs derives plant-level PPM, DPMO, sigma level, and
// first-pass yield from the lot-level inspection results, plus a
// company-wide rollup row keyed __ALL__.
func (p *Pipeline) ComputeQualityKPIs(results dataframe.DataFrame) dataframe.DataFrame {
	inspected := map[string]int{}
	defects := map[string]int{}
	for _, row := range results.Maps() {
		if etl.AsString(row["aggregation_level"]) != "lot" {
			continue
		}
		plantID := etl.AsString(row["plant_id"])
		inspected[plantID] += etl.AsInt(row["total_inspected"])
		defects[plantID] += etl.AsInt(row["total_defects"])
	}

	plantIDs := make([]string, 0, len(inspected))
	for id := range inspected {
		plantIDs = append(plantIDs, id)
	}
	sort.Strings(plantIDs)

	kpiRow := func(plantID string, units, defective int) etl.Row {
		ppm := PPM(defective, units)
		dpmo := DPMO(defective, units)
		fpy := InspectionYield(units-defective, units)
		return etl.Row{
			"plant_id":         plantID,
			"total_inspected":  units,
			"total_defects":    defective,
			"ppm":              math.Round(ppm*100) / 100,
			"dpmo":             math.Round(dpmo*100) / 100,
			"sigma_level":      EstimateSigma(dpmo),
			"first_pass_yield": math.Round(fpy*10000) / 10000,
			"ppm_on_target":    ppm <= kpiTargets.PPM,
			"dpmo_on_target":   dpmo <= kpiTargets.DPMO,
			"fpy_on_target":    fpy >= kpiTargets.FirstPassYield,
		}
	}

	out := make([]etl.Row, 0, len(plantIDs)+1)
	totalUnits, totalDefects := 0, 0
	for _, plantID := range plantIDs {
		out = append(out, kpiRow(plantID, inspected[plantID], defects[plantID]))
		totalUnits += inspected[plantID]
		totalDefects += defects[plantID]
	}
	if len(out) > 0 {
		out = append(out, kpiRow("__ALL__", totalUnits, totalDefects))
	}

	p.logger.Info("computed quality KPIs", slog.Int("plants", len(plantIDs)))
	return etl.FrameFromRows(out)
}
