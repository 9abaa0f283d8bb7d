package assets

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/sitepack/internal/config"
)

// BudgetError reports outputs exceeding the configured size limits when
// hints are set to "error".
type BudgetError struct {
	Violations []string
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("performance budget exceeded: %v", e.Violations)
}

func checkBudgets(logger zerolog.Logger, perf config.Performance, bundles map[string]*Bundle, files map[string][]byte) error {
	if perf.Hints == "off" {
		return nil
	}

	var violations []string

	if perf.MaxAssetSize > 0 {
		for _, rel := range slices.Sorted(maps.Keys(files)) {
			size := int64(len(files[rel]))
			if size > perf.MaxAssetSize {
				violations = append(violations, fmt.Sprintf("asset %s is %d bytes (limit %d)", rel, size, perf.MaxAssetSize))
			}
		}
	}

	if perf.MaxEntrypointSize > 0 {
		for _, name := range slices.Sorted(maps.Keys(bundles)) {
			if size := bundles[name].Size; size > perf.MaxEntrypointSize {
				violations = append(violations, fmt.Sprintf("entrypoint %s is %d bytes (limit %d)", name, size, perf.MaxEntrypointSize))
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}

	if perf.Hints == "error" {
		return &BudgetError{Violations: violations}
	}

	for _, v := range violations {
		logger.Warn().Str("budget", v).Msg("Performance hint")
	}
	return nil
}
