package logistics

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// slaWindows are the delivery windows in hours per service level.
var slaWindows = map[string]float64{
	"express":  24,
	"priority": 48,
	"standard": 120,
	"economy":  240,
	"freight":  336,
}

// SLAResult is the compliance outcome for one shipment.
type SLAResult struct {
	MetSLA         bool
	ElapsedHours   float64
	Status         string
	SLAWindowHours float64
}

// CheckSLACompliance determines whether a shipment met its SLA window.
// Undelivered shipments are judged on elapsed time so far.
func CheckSLACompliance(shippedAt time.Time, deliveredAt *time.Time, serviceLevel string, now time.Time) SLAResult {
	window, ok := slaWindows[serviceLevel]
	if !ok {
		window = slaWindows["standard"]
	}

	if deliveredAt == nil {
		elapsed := now.Sub(shippedAt).Hours()
		return SLAResult{
			MetSLA:         elapsed <= window,
			ElapsedHours:   elapsed,
			Status:         "in_transit",
			SLAWindowHours: window,
		}
	}

	elapsed := deliveredAt.Sub(shippedAt).Hours()
	return SLAResult{
		MetSLA:         elapsed <= window,
		ElapsedHours:   math.Round(elapsed*100) / 100,
		Status:         "delivered",
		SLAWindowHours: window,
	}
}

// AnalyzeDeliveryTimes computes SLA compliance for every shipment with a
// ship timestamp.
func (p *Pipeline) AnalyzeDeliveryTimes(ctx context.Context, shipments dataframe.DataFrame) (dataframe.DataFrame, error) {
	now := time.Now().UTC()
	var out []etl.Row
	for _, row := range shipments.Maps() {
		shipped, err := time.Parse(time.RFC3339, etl.AsString(row["shipped_at"]))
		if err != nil {
			continue
		}
		var delivered *time.Time
		if d, err := time.Parse(time.RFC3339, etl.AsString(row["delivered_at"])); err == nil {
			delivered = &d
		}

		service := etl.AsString(row["service_level"])
		if service == "" {
			service = "standard"
		}
		sla := CheckSLACompliance(shipped, delivered, service, now)
		out = append(out, etl.Row{
			"shipment_id":      etl.AsString(row["shipment_id"]),
			"service_level":    service,
			"met_sla":          sla.MetSLA,
			"elapsed_hours":    sla.ElapsedHours,
			"status":           sla.Status,
			"sla_window_hours": sla.SLAWindowHours,
		})
	}

	p.logger.InfoContext(ctx, "analyzed delivery times", slog.Int("shipments", len(out)))
	return etl.FrameFromRows(out), nil
}

// SummarizeByServiceLevel aggregates delivery stats per service level,
// worst SLA compliance first.
func SummarizeByServiceLevel(delivery dataframe.DataFrame) dataframe.DataFrame {
	type agg struct {
		total, met int
		elapsed    []float64
	}
	buckets := map[string]*agg{}
	for _, row := range delivery.Maps() {
		svc := etl.AsString(row["service_level"])
		b, ok := buckets[svc]
		if !ok {
			b = &agg{}
			buckets[svc] = b
		}
		b.total++
		if isTrue(row["met_sla"]) {
			b.met++
		}
		b.elapsed = append(b.elapsed, etl.AsFloat(row["elapsed_hours"]))
	}

	out := make([]etl.Row, 0, len(buckets))
	for svc, b := range buckets {
		sort.Float64s(b.elapsed)
		var sum float64
		for _, e := range b.elapsed {
			sum += e
		}
		p95Idx := int(math.Ceil(0.95*float64(len(b.elapsed)))) - 1
		if p95Idx < 0 {
			p95Idx = 0
		}
		out = append(out, etl.Row{
			"service_level":     svc,
			"total_shipments":   b.total,
			"sla_met_count":     b.met,
			"sla_met_pct":       math.Round(float64(b.met)/float64(b.total)*1000) / 10,
			"avg_elapsed_hours": math.Round(sum/float64(b.total)*10) / 10,
			"p95_elapsed_hours": math.Round(b.elapsed[p95Idx]*10) / 10,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return etl.AsFloat(out[i]["sla_met_pct"]) < etl.AsFloat(out[j]["sla_met_pct"])
	})
	return etl.FrameFromRows(out)
}
