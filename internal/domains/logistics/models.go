package logistics

import (
	"github.com/go-gota/gota/series"

	"datapipe/internal/schema"
)

// Enumerations shared across the logistics pipeline.
var (
	ValidShippingModes = []string{"PARCEL", "LTL", "FTL", "HAZMAT_PARCEL", "HAZMAT_FREIGHT"}
	ValidStatuses      = []string{"PENDING", "IN_TRANSIT", "DELIVERED", "CANCELLED", "RETURNED", "EXCEPTION"}
	ValidCarriers      = []string{"UPS", "FEDEX", "USPS", "DHL", "AMAZON", "ONTRAC"}
	ValidServiceLevels = []string{"express", "priority", "standard", "economy", "freight"}
)

// ShipmentSchema validates the normalized shipment master.
var ShipmentSchema = schema.Schema{
	Name: "shipments",
	Columns: []schema.Column{
		{Name: "shipment_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.StrMatches(`^SHP-\d{8,12}$`)}},
		{Name: "order_id", Type: series.String},
		{Name: "carrier_id", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidCarriers...)}},
		{Name: "origin", Type: series.String},
		{Name: "destination", Type: series.String},
		{Name: "weight_kg", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "shipping_mode", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidShippingModes...)}},
		{Name: "status", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidStatuses...)}},
		{Name: "service_level", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidServiceLevels...)}},
		{Name: "shipped_at", Type: series.String, Nullable: true},
		{Name: "delivered_at", Type: series.String, Nullable: true},
		{Name: "distance_miles", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
		{Name: "total_cost", Type: series.Float, Nullable: true, Checks: []schema.Check{schema.Ge(0)}},
	},
}

// CarrierSchema validates the carrier master file.
var CarrierSchema = schema.Schema{
	Name: "carriers",
	Columns: []schema.Column{
		{Name: "carrier_id", Type: series.String, Unique: true, Checks: []schema.Check{schema.IsIn(ValidCarriers...)}},
		{Name: "carrier_name", Type: series.String},
		{Name: "active", Type: series.Bool},
		{Name: "contract_start", Type: series.String},
		{Name: "contract_end", Type: series.String},
		{Name: "base_rate_parcel", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "base_rate_ltl", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "base_rate_ftl", Type: series.Float, Checks: []schema.Check{schema.Gt(0)}},
		{Name: "on_time_sla", Type: series.Float, Checks: []schema.Check{schema.InRange(0, 1)}},
	},
}

// TrackingEventSchema validates raw carrier tracking events.
var TrackingEventSchema = schema.Schema{
	Name: "tracking_events",
	Columns: []schema.Column{
		{Name: "event_id", Type: series.String, Unique: true},
		{Name: "shipment_id", Type: series.String, Checks: []schema.Check{schema.StrMatches(`^SHP-\d{8,12}$`)}},
		{Name: "event_time", Type: series.String},
		{Name: "status", Type: series.String},
		{Name: "location", Type: series.String, Nullable: true},
		{Name: "carrier", Type: series.String, Checks: []schema.Check{schema.IsIn(ValidCarriers...)}},
	},
}

// SchemaRegistry maps dataset names to their schemas.
var SchemaRegistry = map[string]schema.Schema{
	"shipments":       ShipmentSchema,
	"carriers":        CarrierSchema,
	"tracking_events": TrackingEventSchema,
}
