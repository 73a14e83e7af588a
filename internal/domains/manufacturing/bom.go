package manufacturing

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

type bomLine struct {
	componentID string
	quantityPer float64
}

// explodeBOM recursively expands the component tree for a product,
// multiplying quantities down the levels. The seen guard stops
// malformed masters that nest a component inside itself.
func explodeBOM(children map[string][]bomLine, productID string, multiplier float64, seen map[string]bool) []bomLine {
	if seen[productID] {
		return nil
	}
	seen[productID] = true
	defer delete(seen, productID)

	var result []bomLine
	for _, line := range children[productID] {
		qty := line.quantityPer * multiplier
		result = append(result, bomLine{componentID: line.componentID, quantityPer: qty})
		result = append(result, explodeBOM(children, line.componentID, qty, seen)...)
	}
	return result
}

// ResolveBillOfMaterials builds a costed, fully exploded BOM for every
// product seen in the production data, joining unit costs from the
// procurement pricing feed.
func (p *Pipeline) ResolveBillOfMaterials(ctx context.Context, production dataframe.DataFrame) (dataframe.DataFrame, error) {
	master, err := p.reader.ReadParquet(ctx, filepath.Join(p.dataDir, "manufacturing", "bom_master.parquet"))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	costs, err := p.reader.ReadCSVFile(ctx, filepath.Join(p.dataDir, "procurement", "raw", "component_costs.csv"))
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	children := map[string][]bomLine{}
	for _, row := range master.Maps() {
		parent := etl.AsString(row["parent_id"])
		children[parent] = append(children[parent], bomLine{
			componentID: etl.AsString(row["component_id"]),
			quantityPer: etl.AsFloat(row["quantity_per"]),
		})
	}
	unitCosts := map[string]float64{}
	for _, row := range costs.Maps() {
		unitCosts[etl.AsString(row["component_id"])] = etl.AsFloat(row["unit_cost"])
	}

	productIDs := map[string]bool{}
	for _, row := range production.Maps() {
		if etl.AsString(row["record_type"]) == "production" {
			if pid := etl.AsString(row["product_id"]); pid != "" {
				productIDs[pid] = true
			}
		}
	}
	products := make([]string, 0, len(productIDs))
	for pid := range productIDs {
		products = append(products, pid)
	}
	sort.Strings(products)

	var out []etl.Row
	resolved := 0
	for _, pid := range products {
		exploded := explodeBOM(children, pid, 1.0, map[string]bool{})
		if len(exploded) == 0 {
			p.logger.Warn("no BOM found for product", slog.String("product", pid))
			continue
		}
		resolved++
		for _, line := range exploded {
			out = append(out, etl.Row{
				"finished_product_id": pid,
				"component_id":        line.componentID,
				"quantity_per":        math.Round(line.quantityPer*10000) / 10000,
				"unit_cost":           unitCosts[line.componentID],
				"line_cost":           math.Round(line.quantityPer*unitCosts[line.componentID]*100) / 100,
			})
		}
	}
	p.logger.Info("resolved bills of materials",
		slog.Int("products", resolved), slog.Int("lines", len(out)))
	return etl.FrameFromRows(out), nil
}
