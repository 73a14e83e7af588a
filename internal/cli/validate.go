package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"datapipe/internal/domains"
	"datapipe/internal/domains/registry"
)

// runValidation validates every domain's source feeds (or a single
// domain when name is set) and prints a pass/fail table. Any error
// status fails the command.
func runValidation(ctx context.Context, w io.Writer, set []domains.Domain, name string) error {
	targets := set
	if name != "" {
		target, found := registry.Lookup(set, name)
		if !found {
			return fmt.Errorf("unknown domain: %s", name)
		}
		targets = []domains.Domain{target}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Domain", "Status", "Rows", "Message"})

	failures := 0
	for _, d := range targets {
		status := d.Validate(ctx)
		if status.Status == "error" {
			failures++
		}
		table.Append([]string{
			d.Name(),
			status.Status,
			strconv.Itoa(status.RowCount),
			status.Message,
		})
	}
	table.Render()

	if failures > 0 {
		return fmt.Errorf("validation failed for %d domain(s)", failures)
	}
	return nil
}
