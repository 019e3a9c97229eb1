package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .InlineJS}}
<script type="text/javascript">{{.InlineJS}}</script>
{{- else}}
<script type="text/javascript" src="{{.ScriptURL}}"></script>
{{- end}}
</head>
<body>
<div id="{{.DivID}}" class="plotly-graph-div" style="height:100%; width:100%;"></div>
<script type="text/javascript">
(function () {
  var figure = {{.Figure}};
  if (Array.isArray(figure)) { figure = {data: figure}; }
  figure = figure || {};
  Plotly.newPlot({{.DivID}}, figure.data || [], figure.layout || {}, {responsive: true}).then(function (gd) {
    if (figure.frames) { Plotly.addFrames(gd, figure.frames); }
  });
})();
</script>
</body>
</html>
`))

type pageData struct {
	Title     string
	DivID     string
	ScriptURL string
	InlineJS  template.JS
	Figure    template.JS
}

// writeHTML renders a standalone page that draws figure with plotly.js.
// The figure is embedded as-is after HTML-safe escaping of <, > and &.
func (r *Offline) writeHTML(w io.Writer, figure json.RawMessage, divID string) error {
	var escaped bytes.Buffer
	if len(bytes.TrimSpace(figure)) == 0 {
		figure = json.RawMessage("null")
	}
	if err := json.Compact(&escaped, figure); err != nil {
		return fmt.Errorf("figure is not valid JSON: %w", err)
	}
	var safe bytes.Buffer
	json.HTMLEscape(&safe, escaped.Bytes())

	data := pageData{
		Title:     "plotly chart",
		DivID:     divID,
		ScriptURL: r.opts.PlotlyCDNURL,
		Figure:    template.JS(safe.String()),
	}
	if model, err := parseFigure(figure); err == nil && model.Title != "" {
		data.Title = model.Title
	}

	if r.opts.PlotlyJSPath != "" {
		bundle, err := os.ReadFile(r.opts.PlotlyJSPath)
		if err != nil {
			return fmt.Errorf("failed to read plotly.js bundle: %w", err)
		}
		data.InlineJS = template.JS(bundle)
	}

	return pageTemplate.Execute(w, data)
}
