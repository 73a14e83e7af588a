package hr

import (
	"context"
	"log/slog"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// ClassifyOrgLevel names the organizational level at a given depth from
// the CEO.
func ClassifyOrgLevel(depth int) string {
	switch depth {
	case 0:
		return "CEO"
	case 1:
		return "C-Suite"
	case 2:
		return "VP"
	case 3:
		return "Director"
	case 4:
		return "Manager"
	case 5:
		return "Lead"
	default:
		if depth <= 8 {
			return "IC"
		}
		return "Deep IC"
	}
}

func buildAdjacency(rows []etl.Row) map[string][]string {
	tree := map[string][]string{}
	for _, row := range rows {
		mgr := etl.AsString(row["manager_id"])
		if mgr == "" {
			continue
		}
		tree[mgr] = append(tree[mgr], etl.AsString(row["employee_id"]))
	}
	for _, children := range tree {
		sort.Strings(children)
	}
	return tree
}

type orgNode struct {
	id       string
	depth    int
	children []*orgNode
}

func walkTree(id string, adjacency map[string][]string, depth int, seen map[string]bool) *orgNode {
	// Cycle guard: malformed exports occasionally have an employee in
	// their own management chain.
	if seen[id] {
		return &orgNode{id: id, depth: depth}
	}
	seen[id] = true

	node := &orgNode{id: id, depth: depth}
	for _, child := range adjacency[id] {
		node.children = append(node.children, walkTree(child, adjacency, depth+1, seen))
	}
	return node
}

func countTotal(node *orgNode) int {
	total := 1
	for _, c := range node.children {
		total += countTotal(c)
	}
	return total
}

// ResolveOrgHierarchy flattens the reporting tree into one row per
// employee with depth, org level, and span-of-control metrics. Roots are
// employees whose manager is missing or outside the export.
func (p *Pipeline) ResolveOrgHierarchy(ctx context.Context, employees dataframe.DataFrame) (dataframe.DataFrame, error) {
	var active []etl.Row
	for _, row := range employees.Maps() {
		if etl.AsString(row["is_active"]) == "true" {
			active = append(active, row)
		}
	}

	adjacency := buildAdjacency(active)
	subordinates := map[string]bool{}
	for _, subs := range adjacency {
		for _, id := range subs {
			subordinates[id] = true
		}
	}

	detail := map[string]etl.Row{}
	var roots []string
	for _, row := range active {
		id := etl.AsString(row["employee_id"])
		detail[id] = row
		if !subordinates[id] {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)

	var out []etl.Row
	var flatten func(node *orgNode)
	flatten = func(node *orgNode) {
		row := etl.Row{
			"employee_id":    node.id,
			"depth":          node.depth,
			"org_level":      ClassifyOrgLevel(node.depth),
			"direct_reports": len(node.children),
			"total_reports":  countTotal(node) - 1,
			"department":     "",
			"job_title":      "",
		}
		if d, ok := detail[node.id]; ok {
			row["department"] = etl.AsString(d["department"])
			row["job_title"] = etl.AsString(d["job_title"])
		}
		out = append(out, row)
		for _, child := range node.children {
			flatten(child)
		}
	}

	seen := map[string]bool{}
	for _, root := range roots {
		flatten(walkTree(root, adjacency, 0, seen))
	}

	p.logger.InfoContext(ctx, "resolved org hierarchy",
		slog.Int("nodes", len(out)),
		slog.Int("roots", len(roots)))
	return etl.FrameFromRows(out), nil
}
