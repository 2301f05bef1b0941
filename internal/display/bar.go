package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// Bar draws percent (0–100) as a width-cell bar followed by the rounded
// percentage, colored for period n. Out-of-range input is clamped.
func Bar(percent float64, width int, n prayer.Name) string {
	if width < 1 {
		width = 1
	}
	percent = math.Max(0, math.Min(100, percent))
	filled := int(math.Round(percent / 100 * float64(width)))

	bar := Themed(n, strings.Repeat("█", filled)) + Gray(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}
