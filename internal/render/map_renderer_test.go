package render_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/storemap/internal/domain/model"
	"github.com/tigerroll/storemap/internal/render"
)

var sampleRecords = []model.StoreRecord{
	{Lat: 13.0, Lon: 77.7, SourceName: "Zepto", Color: "#A10DA1", StoreID: "S3"},
	{Lat: 12.0, Lon: 77.5, SourceName: "Blinkit", Color: "#D8C414", StoreID: "S1"},
	{Lat: 14.0, Lon: 77.9, SourceName: "Zepto", Color: "#A10DA1", StoreID: int64(7)},
}

func TestLegend_SortedByName(t *testing.T) {
	want := []render.LegendEntry{
		{Name: "Blinkit", Color: "#D8C414", Count: 1},
		{Name: "Zepto", Color: "#A10DA1", Count: 2},
	}
	if diff := cmp.Diff(want, render.Legend(sampleRecords)); diff != "" {
		t.Errorf("Legend() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, render.Legend(nil))
}

func TestCentroid(t *testing.T) {
	lat, lon, ok := render.Centroid(sampleRecords)
	require.True(t, ok)
	assert.InDelta(t, 13.0, lat, 1e-9)
	assert.InDelta(t, 77.7, lon, 1e-9)

	_, _, ok = render.Centroid(nil)
	assert.False(t, ok)
}

func TestTooltip_FormatsAndEscapes(t *testing.T) {
	tip := render.Tooltip(model.StoreRecord{Lat: 12.91234, Lon: 77.5, SourceName: "Blinkit", StoreID: "<S1>"})
	assert.Equal(t, "<b>Service:</b> Blinkit<br><b>Store ID:</b> &lt;S1&gt;<br><b>Lat:</b> 12.9123<br><b>Lon:</b> 77.5000", tip)

	tip = render.Tooltip(model.StoreRecord{SourceName: "Unknown"})
	assert.Contains(t, tip, "<b>Store ID:</b> <br>")
}

func TestRender_Page(t *testing.T) {
	page, err := render.NewStoreMapRenderer(render.MapOptions{Zoom: 12}).Render(sampleRecords)
	require.NoError(t, err)
	doc := string(page)

	assert.Contains(t, doc, "<title>Store Locations</title>")
	assert.Contains(t, doc, `<p><span style="color:#A10DA1">&#9679;</span> Zepto: 2</p>`)
	assert.Contains(t, doc, `<p><span style="color:#D8C414">&#9679;</span> Blinkit: 1</p>`)
	assert.Less(t, strings.Index(doc, "Blinkit: 1"), strings.Index(doc, "Zepto: 2"))
	assert.Contains(t, doc, "leaflet@1.9.4")
	assert.Equal(t, 3, strings.Count(doc, `"tooltip":`), "one marker per record")
}

func TestRender_EscapesTitle(t *testing.T) {
	page, err := render.NewStoreMapRenderer(render.MapOptions{Title: "<script>x</script>", Zoom: 10}).Render(sampleRecords)
	require.NoError(t, err)
	assert.NotContains(t, string(page), "<title><script>")
}

func TestRender_NoRecords(t *testing.T) {
	_, err := render.NewStoreMapRenderer(render.MapOptions{Zoom: 10}).Render(nil)
	assert.ErrorIs(t, err, render.ErrNoRecords)
}
