package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"carveout/pkg/arena"
	"carveout/pkg/domain"
)

// parsePoint reads "x,y".
func parsePoint(s string) (domain.Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return domain.Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	if err != nil {
		return domain.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if err != nil {
		return domain.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return domain.Point{X: float32(x), Y: float32(y)}, nil
}

// parsePoints reads "x,y;x,y;...".
func parsePoints(s string) ([]domain.Point, error) {
	var pts []domain.Point
	for part := range strings.SplitSeq(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := parsePoint(part)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// parseStrokeID reads the "slot:generation" form stroke ids print as.
func parseStrokeID(s string) (domain.StrokeID, error) {
	slot, gen, ok := strings.Cut(s, ":")
	if !ok {
		return domain.StrokeID{}, fmt.Errorf("stroke id %q: want slot:generation", s)
	}
	sl, err := strconv.ParseUint(slot, 10, 32)
	if err != nil {
		return domain.StrokeID{}, fmt.Errorf("stroke id %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return domain.StrokeID{}, fmt.Errorf("stroke id %q: %w", s, err)
	}
	return domain.NewStrokeID(arena.Index{Slot: uint32(sl), Generation: uint32(g)}), nil
}

func parseStrokeIDs(ss []string) ([]domain.StrokeID, error) {
	ids := make([]domain.StrokeID, 0, len(ss))
	for _, s := range ss {
		id, err := parseStrokeID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseColor reads "#rrggbb".
func parseColor(s string) (domain.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return domain.Color{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return domain.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return domain.Color{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}

func formatColor(c domain.Color) string {
	channel := func(f float32) uint8 { return uint8(min(max(f, 0), 1)*255 + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

// writeMetrics prints counters and histogram sample counts, one per line.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			name, value := fam.GetName(), 0.0
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				value = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				name += "_count"
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(m.GetLabel()), value)
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
