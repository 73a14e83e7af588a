package logistics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// milestoneOrder fixes the status progression for milestone extraction.
var milestoneOrder = []string{
	"LABEL_CREATED",
	"PICKED_UP",
	"IN_TRANSIT",
	"OUT_FOR_DELIVERY",
	"DELIVERED",
}

// carrierFeeds maps tracking file patterns to the carrier they come from.
var carrierFeeds = []struct {
	pattern string
	carrier string
}{
	{"ups_tracking_*.csv", "UPS"},
	{"fedex_tracking_*.csv", "FEDEX"},
	{"usps_tracking_*.csv", "USPS"},
	{"dhl_tracking_*.csv", "DHL"},
}

// LoadTrackingEvents reads raw tracking events from every carrier feed.
func (p *Pipeline) LoadTrackingEvents(ctx context.Context, dir string) (dataframe.DataFrame, error) {
	chunks := make([]dataframe.DataFrame, 0, len(carrierFeeds))
	for _, feed := range carrierFeeds {
		df, err := p.reader.ReadCSVDir(ctx, dir, etl.ReadOptions{Pattern: feed.pattern})
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to read %s feed: %w", feed.carrier, err)
		}
		if df.Nrow() == 0 {
			continue
		}
		rows := df.Maps()
		for _, row := range rows {
			row["carrier"] = feed.carrier
		}
		chunks = append(chunks, etl.FrameFromRows(rows))
	}
	return etl.ConcatAll(chunks), nil
}

// ComputeMilestoneTimestamps determines when each shipment reached each
// milestone, taking the earliest event per status.
func ComputeMilestoneTimestamps(events dataframe.DataFrame) dataframe.DataFrame {
	byShipment := map[string][]etl.Row{}
	var order []string
	for _, row := range events.Maps() {
		id := etl.AsString(row["shipment_id"])
		if _, seen := byShipment[id]; !seen {
			order = append(order, id)
		}
		byShipment[id] = append(byShipment[id], row)
	}

	out := make([]etl.Row, 0, len(order))
	for _, id := range order {
		group := byShipment[id]
		etl.SortRows(group, "event_time")

		row := etl.Row{"shipment_id": id}
		for _, milestone := range milestoneOrder {
			col := strings.ToLower(milestone) + "_at"
			row[col] = ""
			for _, event := range group {
				if etl.AsString(event["status"]) == milestone {
					row[col] = etl.AsString(event["event_time"])
					break
				}
			}
		}
		out = append(out, row)
	}
	etl.SortRows(out, "shipment_id")
	return etl.FrameFromRows(out)
}

// AggregateTracking merges tracking milestones onto the shipment master and
// computes total transit hours from pickup to delivery.
func (p *Pipeline) AggregateTracking(ctx context.Context, shipments dataframe.DataFrame) (dataframe.DataFrame, error) {
	events, err := p.LoadTrackingEvents(ctx, p.trackingDir())
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if events.Nrow() == 0 {
		p.logger.WarnContext(ctx, "no tracking events found")
		return shipments, nil
	}

	milestones := ComputeMilestoneTimestamps(events)
	merged, err := etl.Merge(shipments, milestones, []string{"shipment_id"}, "left")
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	rows := merged.Maps()
	for _, row := range rows {
		pickedUp, err1 := time.Parse(time.RFC3339, etl.AsString(row["picked_up_at"]))
		delivered, err2 := time.Parse(time.RFC3339, etl.AsString(row["delivered_at"]))
		if err1 == nil && err2 == nil {
			row["total_transit_hours"] = delivered.Sub(pickedUp).Hours()
		} else {
			row["total_transit_hours"] = ""
		}
	}

	p.logger.InfoContext(ctx, "aggregated tracking milestones",
		slog.Int("shipments", len(rows)),
		slog.Int("events", events.Nrow()))
	return etl.FrameFromRows(rows), nil
}
