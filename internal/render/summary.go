package render

import (
	"sort"

	"github.com/tigerroll/storemap/internal/domain/model"
)

// LegendEntry is the store count of one channel.
type LegendEntry struct {
	Name  string
	Color string
	Count int
}

// Legend counts records per source name, sorted by name.
// The color is the one of the first record seen for that name.
func Legend(records []model.StoreRecord) []LegendEntry {
	index := make(map[string]int)
	legend := make([]LegendEntry, 0)
	for _, r := range records {
		i, ok := index[r.SourceName]
		if !ok {
			i = len(legend)
			index[r.SourceName] = i
			legend = append(legend, LegendEntry{Name: r.SourceName, Color: r.Color})
		}
		legend[i].Count++
	}
	sort.Slice(legend, func(a, b int) bool { return legend[a].Name < legend[b].Name })
	return legend
}

// Centroid returns the arithmetic mean of the coordinates. ok is false for an empty set.
func Centroid(records []model.StoreRecord) (lat, lon float64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	for _, r := range records {
		lat += r.Lat
		lon += r.Lon
	}
	n := float64(len(records))
	return lat / n, lon / n, true
}
