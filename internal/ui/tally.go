package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"predictor/internal/models"
)

// Tally counts detections per class name.
func Tally(dets []models.Detection) map[string]int {
	return lo.CountValuesBy(dets, func(d models.Detection) string {
		return d.ClassName
	})
}

// FormatTally renders the detection text pane: a count header followed by
// one line per class in class-name order.
func FormatTally(dets []models.Detection) string {
	counts := Tally(dets)
	names := lo.Keys(counts)
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of objects find %d:\n", len(dets))
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s: %d\n", name, counts[name])
	}
	return sb.String()
}
