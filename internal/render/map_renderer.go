// Package render produces the interactive store map.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"html/template"

	"github.com/tigerroll/storemap/internal/domain/model"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

// ErrNoRecords is returned by Render when there is nothing to place on the map.
var ErrNoRecords = errors.New("no store records to render")

// Marker styling.
const (
	MarkerRadius      = 4
	MarkerFillOpacity = 0.8
)

var mapTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// MapOptions configures the rendered page.
type MapOptions struct {
	Title string
	Zoom  int
}

type marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Color   string  `json:"color"`
	Tooltip string  `json:"tooltip"`
}

type pageData struct {
	Title       string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	Radius      int
	FillOpacity float64
	Legend      []LegendEntry
	Markers     []marker
}

// StoreMapRenderer renders a self-contained Leaflet page with one circle marker per store,
// centered on the centroid of all stores, with a per-channel count legend.
type StoreMapRenderer struct {
	opts MapOptions
}

// NewStoreMapRenderer creates a new StoreMapRenderer.
func NewStoreMapRenderer(opts MapOptions) *StoreMapRenderer {
	if opts.Title == "" {
		opts.Title = "Store Locations"
	}
	return &StoreMapRenderer{opts: opts}
}

// Render returns the HTML document, or ErrNoRecords for an empty record set.
func (r *StoreMapRenderer) Render(records []model.StoreRecord) ([]byte, error) {
	lat, lon, ok := Centroid(records)
	if !ok {
		return nil, ErrNoRecords
	}

	data := pageData{
		Title:       r.opts.Title,
		CenterLat:   lat,
		CenterLon:   lon,
		Zoom:        r.opts.Zoom,
		Radius:      MarkerRadius,
		FillOpacity: MarkerFillOpacity,
		Legend:      Legend(records),
		Markers:     make([]marker, len(records)),
	}
	for i, rec := range records {
		data.Markers[i] = marker{
			Lat:     rec.Lat,
			Lon:     rec.Lon,
			Color:   rec.Color,
			Tooltip: Tooltip(rec),
		}
	}

	var buf bytes.Buffer
	if err := mapTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render map: %w", err)
	}
	return buf.Bytes(), nil
}

// Tooltip is the HTML shown when hovering a marker. Record values are escaped.
func Tooltip(rec model.StoreRecord) string {
	storeID := ""
	if rec.StoreID != nil {
		storeID = fmt.Sprint(rec.StoreID)
	}
	return fmt.Sprintf("<b>Service:</b> %s<br><b>Store ID:</b> %s<br><b>Lat:</b> %.4f<br><b>Lon:</b> %.4f",
		html.EscapeString(rec.SourceName), html.EscapeString(storeID), rec.Lat, rec.Lon)
}
