// Command pqcat inspects and queries Parquet files from the command line:
// print the schema tree, dump the first rows, or run a filter/orderBy query
// and render the result as a table.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"

	"github.com/streamparquet/parquet"
)

var cli struct {
	Verbose bool `help:"Log the opened file's row-group and row counts, and each decoded column chunk, to stderr (no fetch or byte totals)." short:"v"`

	Schema SchemaCmd `cmd:"" help:"Print the file's schema tree."`
	Head   HeadCmd   `cmd:"" help:"Print the first N rows."`
	Query  QueryCmd  `cmd:"" help:"Run a filter/orderBy query and print matching rows."`
}

func main() {
	parser := kong.Must(
		&cli,
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Description("pqcat inspects and queries Parquet files without loading them fully into memory."),
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	logger := newLogger(cli.Verbose)
	ctx.FatalIfErrorf(ctx.Run(logger))
}

func newLogger(verbose bool) log.Logger {
	if !verbose {
		return log.NewNopLogger()
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	return level.NewFilter(logger, level.AllowDebug())
}

// SchemaCmd prints the decoded schema tree, one line per node, indented by
// nesting depth.
type SchemaCmd struct {
	File string `arg:"" help:"Path to the Parquet file." type:"existingfile"`
}

func (c *SchemaCmd) Run(logger log.Logger) error {
	ctx := context.Background()
	r, err := openFile(ctx, c.File, logger)
	if err != nil {
		return err
	}
	printNode(r.Schema.Root, 0)
	return nil
}

func printNode(n *parquet.Node, depth int) {
	if n.Parent != nil {
		repetition := "REQUIRED"
		if n.Element.RepetitionType != nil {
			repetition = n.Element.RepetitionType.String()
		}
		kind := "group"
		if len(n.Children) == 0 && n.Element.Type != nil {
			kind = n.Element.Type.String()
		}
		fmt.Printf("%s%s %s %s\n", strings.Repeat("  ", depth-1), repetition, kind, n.Element.Name)
	}
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}

// HeadCmd prints the first N rows of a file as a table.
type HeadCmd struct {
	File    string   `arg:"" help:"Path to the Parquet file." type:"existingfile"`
	Limit   int64    `help:"Number of rows to print." default:"10"`
	Columns []string `help:"Columns to project (default: all top-level columns)." sep:","`
}

func (c *HeadCmd) Run(logger log.Logger) error {
	ctx := context.Background()
	r, err := openFile(ctx, c.File, logger)
	if err != nil {
		return err
	}
	rows, err := r.Read(ctx, parquet.ReadOptions{
		Columns: c.Columns,
		RowEnd:  c.Limit,
		UTF8:    true,
		OnChunk: chunkLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("reading rows: %w", err)
	}
	return renderRows(rows)
}

// QueryCmd runs a filter/orderBy query expressed as a JSON filter document
// (spec.md §6's MongoDB-style syntax).
type QueryCmd struct {
	File     string   `arg:"" help:"Path to the Parquet file." type:"existingfile"`
	Filter   string   `help:"JSON filter object, e.g. '{\"status\":{\"$eq\":\"ok\"}}'."`
	OrderBy  string   `help:"Column to sort by."`
	RowStart int64    `help:"First row index (after filtering/sorting) to return."`
	RowEnd   int64    `help:"One past the last row index to return (0 means no limit)."`
	Strict   bool     `help:"Require exact type equality instead of numeric/string coercion."`
	Columns  []string `help:"Columns to project (default: all top-level columns)." sep:","`
}

func (c *QueryCmd) Run(logger log.Logger) error {
	ctx := context.Background()
	r, err := openFile(ctx, c.File, logger)
	if err != nil {
		return err
	}

	var filter *parquet.Filter
	if c.Filter != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(c.Filter), &m); err != nil {
			return fmt.Errorf("parsing --filter: %w", err)
		}
		filter, err = parquet.ParseFilter(m)
		if err != nil {
			return fmt.Errorf("building filter: %w", err)
		}
	}

	rows, err := r.Query(ctx, parquet.ReadOptions{
		Columns:  c.Columns,
		Filter:   filter,
		Strict:   c.Strict,
		OrderBy:  c.OrderBy,
		RowStart: c.RowStart,
		RowEnd:   c.RowEnd,
		UTF8:     true,
		OnChunk:  chunkLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	return renderRows(rows)
}

func openFile(ctx context.Context, path string, logger log.Logger) (*parquet.Reader, error) {
	src, err := parquet.OpenFileByteSource(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	r, err := parquet.Open(ctx, src, 64*1024)
	if err != nil {
		return nil, fmt.Errorf("reading metadata of %q: %w", path, err)
	}
	level.Info(logger).Log("msg", "opened file", "path", path, "rowGroups", len(r.Metadata.RowGroups), "numRows", r.Metadata.NumRows)
	return r, nil
}

func chunkLogger(logger log.Logger) func(parquet.ChunkEvent) {
	fetches := 0
	return func(ev parquet.ChunkEvent) {
		fetches++
		level.Debug(logger).Log("msg", "decoded chunk", "rowGroup", ev.RowGroup, "column", ev.Column, "chunkCount", fetches)
	}
}

func renderRows(rows []map[string]any) error {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	var header []string
	seen := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, col := range header {
			rec[i] = formatCell(row[col])
		}
		table.Append(rec)
	}
	table.Render()
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
