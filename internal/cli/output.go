package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/AlexWan0/go-sparsetable/internal/config"
)

// result is the answer to one query.
type result struct {
	Query    int   `json:"query"    yaml:"query"`
	Left     int   `json:"l"        yaml:"l"`
	Right    int   `json:"r"        yaml:"r"`
	Value    int64 `json:"value"    yaml:"value"`
	Position int   `json:"position" yaml:"position"`
}

// resultWriter emits query results. Close flushes whatever was written.
type resultWriter interface {
	Write(res result) error
	Close() error
}

func newResultWriter(format string, w io.Writer) (resultWriter, error) {
	switch format {
	case config.FormatText:
		return &textWriter{w: bufio.NewWriter(w)}, nil
	case config.FormatJSON, config.FormatYAML, config.FormatTable:
		return &collectingWriter{format: format, w: w}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
}

// textWriter streams "value position" lines.
type textWriter struct {
	w *bufio.Writer
}

func (tw *textWriter) Write(res result) error {
	_, err := fmt.Fprintf(tw.w, "%d %d\n", res.Value, res.Position)

	return err
}

func (tw *textWriter) Close() error {
	return tw.w.Flush()
}

// collectingWriter buffers results and renders them as one document on Close.
type collectingWriter struct {
	format  string
	w       io.Writer
	results []result
}

func (cw *collectingWriter) Write(res result) error {
	cw.results = append(cw.results, res)

	return nil
}

func (cw *collectingWriter) Close() error {
	results := cw.results
	if results == nil {
		results = []result{}
	}

	switch cw.format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}

		_, err = fmt.Fprintf(cw.w, "%s\n", data)

		return err
	case config.FormatYAML:
		data, err := yaml.Marshal(results)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}

		_, err = cw.w.Write(data)

		return err
	default:
		_, err := fmt.Fprintln(cw.w, renderTable(results))

		return err
	}
}

func renderTable(results []result) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "L", "R", "Value", "Position"})

	for _, res := range results {
		tbl.AppendRow(table.Row{res.Query, res.Left, res.Right, res.Value, res.Position})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d queries", len(results))})

	return tbl.Render()
}
