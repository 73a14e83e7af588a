package expectations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"datapipe/internal/etl"
)

// LoadPrimaryDataset reads the table a domain's suite validates from the
// domain's output directory. Datasets written with a partition column are
// directories of col=value part files; the parts of the newest dataset are
// concatenated back into one frame. The second return is false when no
// output exists in either layout.
func LoadPrimaryDataset(ctx context.Context, reader *etl.Reader, outputDir, domain string) (dataframe.DataFrame, bool, error) {
	pattern := PrimaryDataset(domain)
	base := filepath.Join(outputDir, domain)

	matches, err := filepath.Glob(filepath.Join(base, pattern))
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		df, err := reader.ReadParquet(ctx, matches[len(matches)-1])
		if err != nil {
			return dataframe.DataFrame{}, false, fmt.Errorf("reading %s primary output: %w", domain, err)
		}
		return df, true, nil
	}

	ext := filepath.Ext(pattern)
	stem := strings.TrimSuffix(pattern, ext)
	roots, _ := filepath.Glob(filepath.Join(base, stem))
	var dirs []string
	for _, root := range roots {
		if info, statErr := os.Stat(root); statErr == nil && info.IsDir() {
			dirs = append(dirs, root)
		}
	}
	if len(dirs) == 0 {
		return dataframe.DataFrame{}, false, nil
	}
	sort.Strings(dirs)

	parts, _ := filepath.Glob(filepath.Join(dirs[len(dirs)-1], "*=*", "part-*"+ext))
	if len(parts) == 0 {
		return dataframe.DataFrame{}, false, nil
	}
	sort.Strings(parts)

	frames := make([]dataframe.DataFrame, 0, len(parts))
	for _, part := range parts {
		df, err := reader.ReadParquet(ctx, part)
		if err != nil {
			return dataframe.DataFrame{}, false, fmt.Errorf("reading %s partition %s: %w", domain, part, err)
		}
		frames = append(frames, df)
	}
	return etl.ConcatAll(frames), true, nil
}
