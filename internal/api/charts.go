package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// hazardHeatmap renders the current grid as an HTML heatmap using go-echarts.
// This is a debugging-only endpoint (no auth) for eyeballing CO plumes
// without a frontend. Walls are rendered at -1 to stand apart from clean
// floor cells.
func (s *Server) hazardHeatmap(w http.ResponseWriter, r *http.Request) {
	snap := s.field.Snapshot()
	if len(snap.Cells) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no grid cells available")
		return
	}

	data := make([]opts.HeatMapData, 0, len(snap.Cells))
	maxLevel := 0.0
	for _, c := range snap.Cells {
		level := c.Hazard
		if c.IsWall {
			level = -1
		}
		if level > maxLevel {
			maxLevel = level
		}
		data = append(data, opts.HeatMapData{Value: []interface{}{c.X, c.Y, level}})
	}
	if maxLevel == 0 {
		maxLevel = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "CO Hazard Grid", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "CO Hazard Grid", Subtitle: fmt.Sprintf("cells=%d max=%.1fppm", len(data), maxLevel)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "X"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Y"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        float32(maxLevel),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	hm.AddSeries("hazard", data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
