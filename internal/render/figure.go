package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// figureModel is the subset of a plotly figure the raster renderer draws.
// The HTML renderer never looks at it; it embeds the raw figure instead.
type figureModel struct {
	Traces []traceModel
	Title  string
	XTitle string
	YTitle string
}

type traceModel struct {
	Name   string
	Mode   string
	Hidden bool
	X      []float64
	Y      []float64
}

type rawFigure struct {
	Data   []rawTrace `json:"data"`
	Layout rawLayout  `json:"layout"`
}

type rawTrace struct {
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Mode    string          `json:"mode"`
	Visible json.RawMessage `json:"visible"`
	X       json.RawMessage `json:"x"`
	Y       json.RawMessage `json:"y"`
}

type rawLayout struct {
	Title json.RawMessage `json:"title"`
	XAxis struct {
		Title json.RawMessage `json:"title"`
	} `json:"xaxis"`
	YAxis struct {
		Title json.RawMessage `json:"title"`
	} `json:"yaxis"`
}

// parseFigure accepts either a figure object or a bare list of traces, as
// plotly does.
func parseFigure(raw json.RawMessage) (*figureModel, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &figureModel{}, nil
	}

	var fig rawFigure
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &fig.Data); err != nil {
			return nil, fmt.Errorf("failed to decode trace list: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &fig); err != nil {
		return nil, fmt.Errorf("failed to decode figure: %w", err)
	}

	model := &figureModel{
		Title:  titleText(fig.Layout.Title),
		XTitle: titleText(fig.Layout.XAxis.Title),
		YTitle: titleText(fig.Layout.YAxis.Title),
	}

	for i, t := range fig.Data {
		if t.Type != "" && t.Type != "scatter" && t.Type != "scattergl" {
			continue
		}

		y, err := numbers(t.Y)
		if err != nil {
			return nil, fmt.Errorf("trace %d: y: %w", i, err)
		}
		x, err := numbers(t.X)
		if err != nil {
			return nil, fmt.Errorf("trace %d: x: %w", i, err)
		}
		if x == nil {
			x = make([]float64, len(y))
			for j := range x {
				x[j] = float64(j)
			}
		}
		n := len(x)
		if len(y) < n {
			n = len(y)
		}

		name := t.Name
		if name == "" {
			name = fmt.Sprintf("trace %d", i)
		}
		model.Traces = append(model.Traces, traceModel{
			Name:   name,
			Mode:   t.Mode,
			Hidden: hidden(t.Visible),
			X:      x[:n],
			Y:      y[:n],
		})
	}
	return model, nil
}

// numbers decodes a coordinate array. null entries become NaN gaps;
// anything else that is not a number is rejected.
func numbers(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var items []*float64
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected an array of numbers: %w", err)
	}

	out := make([]float64, len(items))
	for i, v := range items {
		if v == nil {
			out[i] = nan
			continue
		}
		out[i] = *v
	}
	return out, nil
}

func hidden(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "false", `"legendonly"`:
		return true
	}
	return false
}

// titleText handles both "title": "text" and "title": {"text": "text"}.
func titleText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text
	}
	return ""
}
