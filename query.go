package parquet

import (
	"context"
	"fmt"
	"sort"

	"github.com/streamparquet/parquet/compress"
	"github.com/streamparquet/parquet/format"
)

// Reader is an opened Parquet file: its decoded footer plus schema tree,
// ready to plan and execute reads against.
type Reader struct {
	Source   ByteSource
	Metadata *format.FileMetaData
	Schema   *Schema
}

// Open reads and decodes the footer (spec.md §4.B) and builds the schema
// tree (§4.D), returning a Reader ready for Read/Query calls.
func Open(ctx context.Context, src ByteSource, initialFetchSize int64) (*Reader, error) {
	meta, err := ReadMetadataFromSource(ctx, src, initialFetchSize)
	if err != nil {
		return nil, err
	}
	schema, err := BuildSchema(meta.Schema)
	if err != nil {
		return nil, err
	}
	return &Reader{Source: src, Metadata: meta, Schema: schema}, nil
}

// ChunkEvent is delivered to a ReadOptions.OnChunk callback as one column
// chunk finishes decoding.
type ChunkEvent struct {
	RowGroup int
	Column   string
	Array    *DecodedArray
}

// ReadOptions is the produced read/query API (spec.md §6): a plain struct
// rather than the teacher's functional-option idiom, since this reader has
// no writer-side option surface to generalize (documented in DESIGN.md).
// Strict selects type-exact filter equality; its zero value (false) is the
// coercive, non-strict mode that compares with numeric/string coercion.
type ReadOptions struct {
	Columns     []string
	Filter      *Filter
	Strict      bool
	OrderBy     string
	RowStart    int64
	RowEnd      int64
	Compressors compress.Table
	Parsers     ParserTable
	UTF8        bool
	OnChunk     func(ChunkEvent)
}

func (o ReadOptions) withDefaults(totalRows int64) ReadOptions {
	if o.Compressors == nil {
		o.Compressors = compress.DefaultTable()
	}
	if o.RowEnd == 0 {
		o.RowEnd = totalRows
	}
	return o
}

// Read implements the four execution strategies of spec.md §4.I.
func (r *Reader) Read(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	opts = opts.withDefaults(r.Metadata.NumRows)
	if opts.RowStart < 0 || opts.RowStart > opts.RowEnd {
		return nil, ErrOutOfRange
	}

	switch {
	case opts.OrderBy != "" && opts.Filter == nil:
		return r.readOrderByOnly(ctx, opts)
	case opts.Filter != nil && opts.OrderBy != "":
		return r.readFilterAndOrderBy(ctx, opts)
	case opts.Filter != nil:
		return r.readFilterOnly(ctx, opts)
	default:
		return r.readPlain(ctx, opts)
	}
}

// Query is an alias for Read: the produced API names both operations
// (spec.md §6), but they share one execution engine.
func (r *Reader) Query(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	return r.Read(ctx, opts)
}

// projectionColumns returns the set of leaf dotted-paths that must be
// decoded: the explicit projection (or all leaves, if empty) unioned with
// every column referenced by filter and orderBy, since those must be read
// even when not projected (projection is applied last, spec.md §4.I).
func (r *Reader) projectionColumns(opts ReadOptions) (map[string]bool, []string, error) {
	var projected []string
	set := map[string]bool{}
	if len(opts.Columns) == 0 {
		for _, leaf := range r.Schema.Leaves {
			set[leaf.dottedPath()] = true
		}
	} else {
		for _, col := range opts.Columns {
			if _, ok := r.topLevelChild(col); !ok {
				return nil, nil, fmt.Errorf("parquet: %w: %q", ErrColumnNotFound, col)
			}
			projected = append(projected, col)
			for _, leaf := range r.Schema.Leaves {
				if leaf.Path[0] == col {
					set[leaf.dottedPath()] = true
				}
			}
		}
	}
	for _, col := range collectFilterColumns(opts.Filter) {
		r.addColumnLeaves(col, set)
	}
	if opts.OrderBy != "" {
		r.addColumnLeaves(opts.OrderBy, set)
	}
	return set, projected, nil
}

func (r *Reader) topLevelChild(name string) (*Node, bool) {
	for _, c := range r.Schema.Root.Children {
		if c.Element.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (r *Reader) addColumnLeaves(topLevelOrDotted string, set map[string]bool) {
	for _, leaf := range r.Schema.Leaves {
		if leaf.dottedPath() == topLevelOrDotted || leaf.Path[0] == topLevelOrDotted {
			set[leaf.dottedPath()] = true
		}
	}
}

func collectFilterColumns(f *Filter) []string {
	if f == nil {
		return nil
	}
	var out []string
	switch {
	case f.And != nil:
		for _, c := range f.And {
			out = append(out, collectFilterColumns(c)...)
		}
	case f.Or != nil:
		for _, c := range f.Or {
			out = append(out, collectFilterColumns(c)...)
		}
	case f.Nor != nil:
		for _, c := range f.Nor {
			out = append(out, collectFilterColumns(c)...)
		}
	case f.Not != nil:
		out = append(out, collectFilterColumns(f.Not)...)
	default:
		out = append(out, f.Column)
	}
	return out
}

// decodeGroup decodes every column gp.Chunks names (the byte ranges already
// resolved by BuildPlan) and assembles the group's rows. src is the
// (normally prefetch-wrapped) source to read from, not necessarily r.Source
// directly — callers fetch the plan's coalesced ranges through a
// prefetchSource before calling decodeGroup, so this issues no Slice calls of
// its own beyond what the wrapper already buffered.
func (r *Reader) decodeGroup(ctx context.Context, src ByteSource, gp GroupPlan, opts ReadOptions) ([]map[string]any, error) {
	rg := &r.Metadata.RowGroups[gp.GroupIndex]
	arrays := map[string]*DecodedArray{}
	for _, cp := range gp.Chunks {
		leaf, ok := r.Schema.ColumnByPath(cp.Column)
		if !ok {
			return nil, fmt.Errorf("parquet: %w: column chunk %q not found in schema", ErrSchemaConflict, cp.Column)
		}
		chunk := findColumnChunk(rg, cp.Column)
		if chunk == nil {
			return nil, fmt.Errorf("parquet: %w: column chunk %q not found in row group", ErrSchemaConflict, cp.Column)
		}
		dec := NewColumnDecoder(leaf, opts.Compressors, opts.Parsers, opts.UTF8)
		arr, err := dec.Decode(ctx, src, chunk, cp.Range)
		if err != nil {
			return nil, fmt.Errorf("parquet: decoding column %q: %w", cp.Column, err)
		}
		if opts.OnChunk != nil {
			opts.OnChunk(ChunkEvent{RowGroup: gp.GroupIndex, Column: cp.Column, Array: arr})
		}
		arrays[cp.Column] = arr
	}
	return AssembleRows(r.Schema, arrays, int(rg.NumRows))
}

func findColumnChunk(rg *format.RowGroup, name string) *format.ColumnChunk {
	for i := range rg.Columns {
		if columnChunkName(&rg.Columns[i]) == name {
			return &rg.Columns[i]
		}
	}
	return nil
}

// prefetch wraps src in a read-through cache populated from ranges (spec.md
// §4.H step 3's coalesced fetch set / §5's "prefetch fetches" step), so the
// column decoders that follow serve every Slice out of the already-fetched
// buffers instead of issuing one Slice per column chunk.
func prefetch(ctx context.Context, src ByteSource, ranges []ByteRange) (ByteSource, error) {
	return newPrefetchSource(ctx, src, ranges)
}

func sliceRows(rows []map[string]any, start, end int64) []map[string]any {
	if start < 0 {
		start = 0
	}
	if end > int64(len(rows)) {
		end = int64(len(rows))
	}
	if start >= end {
		return nil
	}
	return rows[start:end]
}

func projectRows(rows []map[string]any, projected []string) []map[string]any {
	if len(projected) == 0 {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		o := make(map[string]any, len(projected))
		for _, col := range projected {
			o[col] = row[col]
		}
		if idx, ok := row["__index__"]; ok {
			o["__index__"] = idx
		}
		out[i] = o
	}
	return out
}

// readPlain is the no-filter, no-orderBy strategy: build the plan, read
// every included group, concatenate, slice to [rowStart, rowEnd).
func (r *Reader) readPlain(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	columns, projected, err := r.projectionColumns(opts)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(r.Metadata, r.Schema, columns, nil, opts.RowStart, opts.RowEnd, opts.Strict, opts.Parsers, opts.UTF8)
	if err != nil {
		return nil, err
	}
	src, err := prefetch(ctx, r.Source, plan.FetchRanges)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, gp := range plan.Groups {
		if gp.Skip {
			continue
		}
		groupRows, err := r.decodeGroup(ctx, src, gp, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, sliceRows(groupRows, gp.SelectStart, gp.SelectEnd)...)
	}
	return projectRows(rows, projected), nil
}

// readFilterOnly streams groups in order, applying the row-level filter and
// stopping once enough rows have been accumulated to satisfy rowEnd — the
// minimum-byte guarantee for top-k filtered reads (spec.md §4.I): each
// group's chunks are fetched only when that group is reached, so groups
// after the stop are never fetched.
func (r *Reader) readFilterOnly(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	columns, projected, err := r.projectionColumns(opts)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(r.Metadata, r.Schema, columns, opts.Filter, 0, 0, opts.Strict, opts.Parsers, opts.UTF8)
	if err != nil {
		return nil, err
	}

	var matched []map[string]any
	for _, gp := range plan.Groups {
		if gp.Skip {
			continue
		}
		var ranges []ByteRange
		for _, cp := range gp.Chunks {
			ranges = append(ranges, cp.Range)
		}
		src, err := prefetch(ctx, r.Source, coalesceFetches(ranges, false))
		if err != nil {
			return nil, err
		}
		groupRows, err := r.decodeGroup(ctx, src, gp, opts)
		if err != nil {
			return nil, err
		}
		for _, row := range groupRows {
			if EvaluateRow(opts.Filter, row, opts.Strict) {
				matched = append(matched, row)
				if int64(len(matched)) >= opts.RowEnd {
					break
				}
			}
		}
		if int64(len(matched)) >= opts.RowEnd {
			break
		}
	}
	return projectRows(sliceRows(matched, opts.RowStart, opts.RowEnd), projected), nil
}

// readFilterAndOrderBy reads all matching rows (ignoring rowStart/rowEnd
// during the read, per spec.md §4.I), sorts, then slices.
func (r *Reader) readFilterAndOrderBy(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	columns, projected, err := r.projectionColumns(opts)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(r.Metadata, r.Schema, columns, opts.Filter, 0, 0, opts.Strict, opts.Parsers, opts.UTF8)
	if err != nil {
		return nil, err
	}
	src, err := prefetch(ctx, r.Source, plan.FetchRanges)
	if err != nil {
		return nil, err
	}

	var matched []map[string]any
	for _, gp := range plan.Groups {
		if gp.Skip {
			continue
		}
		groupRows, err := r.decodeGroup(ctx, src, gp, opts)
		if err != nil {
			return nil, err
		}
		for _, row := range groupRows {
			if EvaluateRow(opts.Filter, row, opts.Strict) {
				matched = append(matched, row)
			}
		}
	}
	sortRowsByColumn(matched, opts.OrderBy, false)
	return projectRows(sliceRows(matched, opts.RowStart, opts.RowEnd), projected), nil
}

// readOrderByOnly implements spec.md §4.I's sparse-permutation strategy:
// read only the orderBy column for the whole file, compute the sort
// permutation, then read the remaining columns only for the row groups the
// selected positions actually touch.
func (r *Reader) readOrderByOnly(ctx context.Context, opts ReadOptions) ([]map[string]any, error) {
	orderColumns := map[string]bool{}
	r.addColumnLeaves(opts.OrderBy, orderColumns)

	fullPlan, err := BuildPlan(r.Metadata, r.Schema, orderColumns, nil, 0, 0, opts.Strict, opts.Parsers, opts.UTF8)
	if err != nil {
		return nil, err
	}
	orderSrc, err := prefetch(ctx, r.Source, fullPlan.FetchRanges)
	if err != nil {
		return nil, err
	}

	var keyRows []orderKey
	rowIndex := 0
	for _, gp := range fullPlan.Groups {
		if gp.Skip {
			rowIndex += int(gp.NumRows)
			continue
		}
		rows, err := r.decodeGroup(ctx, orderSrc, gp, opts)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			keyRows = append(keyRows, orderKey{index: rowIndex, value: row[opts.OrderBy]})
			rowIndex++
		}
	}

	sort.SliceStable(keyRows, func(i, j int) bool {
		return lessWithNullOrdering(keyRows[i].value, keyRows[j].value, false)
	})
	selected := sliceIndexed(keyRows, opts.RowStart, opts.RowEnd)

	touchedGroups := map[int]bool{}
	for _, s := range selected {
		gi := rowGroupForIndex(r.Metadata, s.index)
		touchedGroups[gi] = true
	}

	columns, projected, err := r.projectionColumns(opts)
	if err != nil {
		return nil, err
	}
	projPlan, err := BuildPlan(r.Metadata, r.Schema, columns, nil, 0, 0, opts.Strict, opts.Parsers, opts.UTF8)
	if err != nil {
		return nil, err
	}

	var touchedRanges []ByteRange
	for _, gp := range projPlan.Groups {
		if !touchedGroups[gp.GroupIndex] {
			continue
		}
		for _, cp := range gp.Chunks {
			touchedRanges = append(touchedRanges, cp.Range)
		}
	}
	projSrc, err := prefetch(ctx, r.Source, coalesceFetches(touchedRanges, false))
	if err != nil {
		return nil, err
	}

	byIndex := map[int]map[string]any{}
	for _, gp := range projPlan.Groups {
		if !touchedGroups[gp.GroupIndex] {
			continue
		}
		rows, err := r.decodeGroup(ctx, projSrc, gp, opts)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			byIndex[int(gp.RowOffset)+i] = row
		}
	}

	out := make([]map[string]any, 0, len(selected))
	for _, s := range selected {
		row := byIndex[s.index]
		if row == nil {
			row = map[string]any{}
		}
		tagged := make(map[string]any, len(row)+1)
		for k, v := range row {
			tagged[k] = v
		}
		tagged["__index__"] = s.index
		out = append(out, tagged)
	}
	return projectRows(out, projected), nil
}

func rowGroupForIndex(meta *format.FileMetaData, index int) int {
	var offset int64
	for gi := range meta.RowGroups {
		n := meta.RowGroups[gi].NumRows
		if int64(index) < offset+n {
			return gi
		}
		offset += n
	}
	return len(meta.RowGroups) - 1
}
