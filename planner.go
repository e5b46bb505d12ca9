package parquet

import (
	"strings"

	"github.com/streamparquet/parquet/format"
)

const wholeGroupCoalesceThreshold = 32 << 20 // 32 MiB
const gapCoalesceThreshold = 2 << 20         // 2 MiB

// ChunkPlan is one column chunk's resolved byte range within a row group.
type ChunkPlan struct {
	Column string
	Range  ByteRange
}

// GroupPlan describes how one row group will be read: whether it can be
// skipped entirely on statistics, and (if not) the byte ranges of the
// columns that must be fetched and the row-offset window of interest within
// it.
type GroupPlan struct {
	GroupIndex int
	RowOffset  int64 // cumulative row index of this group's first row
	NumRows    int64
	Skip       bool
	Chunks     []ChunkPlan

	// SelectStart/SelectEnd narrow the group to the rows spec.md's row-range
	// query (rowStart/rowEnd) actually needs, relative to RowOffset.
	SelectStart int64
	SelectEnd   int64
}

// QueryPlan is the full plan for one read: per-group skip/fetch decisions
// plus the coalesced set of byte ranges to prefetch.
type QueryPlan struct {
	Groups      []GroupPlan
	FetchRanges []ByteRange
}

// chunkByteRange computes a column chunk's on-disk span: from its
// dictionary page (if present) or first data page, through its declared
// compressed size.
func chunkByteRange(meta *format.ColumnMetaData) ByteRange {
	start := meta.DataPageOffset
	if meta.HasDictionaryPageOffset && meta.DictionaryPageOffset < start {
		start = meta.DictionaryPageOffset
	}
	return ByteRange{Start: start, End: start + meta.TotalCompressedSize}
}

func columnChunkName(chunk *format.ColumnChunk) string {
	return strings.Join(chunk.MetaData.PathInSchema, ".")
}

// BuildPlan implements spec.md §4.H: decide which row groups can be skipped
// using column statistics against filter, restrict each surviving group to
// the requested row window, resolve the byte ranges of the columns that
// must actually be read (projection ∪ filter columns ∪ orderBy column), and
// coalesce those ranges into the minimal fetch set.
//
// columns is the set of leaf dotted-paths the caller needs decoded (already
// the union of projection, filter, and orderBy columns); an empty columns
// set means "all leaves".
func BuildPlan(meta *format.FileMetaData, schema *Schema, columns map[string]bool, filter *Filter, rowStart, rowEnd int64, strict bool, parsers ParserTable, utf8 bool) (*QueryPlan, error) {
	if rowStart < 0 || rowEnd < rowStart {
		return nil, ErrOutOfRange
	}

	plan := &QueryPlan{}
	var allRanges []ByteRange
	var rowOffset int64

	for gi := range meta.RowGroups {
		rg := &meta.RowGroups[gi]
		groupStart := rowOffset
		groupEnd := rowOffset + rg.NumRows
		rowOffset = groupEnd

		gp := GroupPlan{GroupIndex: gi, RowOffset: groupStart, NumRows: rg.NumRows}

		// Row-range intersection: skip groups entirely outside [rowStart, rowEnd).
		if rowEnd > 0 && (groupStart >= rowEnd || groupEnd <= rowStart) {
			gp.Skip = true
			plan.Groups = append(plan.Groups, gp)
			continue
		}
		gp.SelectStart = max64(0, rowStart-groupStart)
		gp.SelectEnd = rg.NumRows
		if rowEnd > 0 {
			gp.SelectEnd = min64(rg.NumRows, rowEnd-groupStart)
		}

		if filter != nil && CanSkipRowGroup(filter, rowGroupStatsLookup(rg, schema, parsers, utf8)) {
			gp.Skip = true
			plan.Groups = append(plan.Groups, gp)
			continue
		}

		for ci := range rg.Columns {
			chunk := &rg.Columns[ci]
			if chunk.HasFilePath {
				continue
			}
			name := columnChunkName(chunk)
			if len(columns) > 0 && !columns[name] {
				continue
			}
			r := chunkByteRange(chunk.MetaData)
			gp.Chunks = append(gp.Chunks, ChunkPlan{Column: name, Range: r})
			allRanges = append(allRanges, r)
		}
		plan.Groups = append(plan.Groups, gp)
	}

	plan.FetchRanges = coalesceFetches(allRanges, len(columns) == 0)
	return plan, nil
}

// coalesceFetches applies spec.md §4.H step 3: when no projection narrows
// the read and the whole span fits within wholeGroupCoalesceThreshold, fetch
// it as one range; otherwise merge ranges within gapCoalesceThreshold of
// each other.
func coalesceFetches(ranges []ByteRange, wholeFile bool) []ByteRange {
	if len(ranges) == 0 {
		return nil
	}
	merged := coalesce(ranges, gapCoalesceThreshold)
	if wholeFile && len(merged) > 0 {
		span := merged[len(merged)-1].End - merged[0].Start
		if span <= wholeGroupCoalesceThreshold {
			return []ByteRange{{Start: merged[0].Start, End: merged[len(merged)-1].End}}
		}
	}
	return merged
}

// rowGroupStatsLookup builds a statsLookup for CanSkipRowGroup from a row
// group's per-column Statistics, decoding the stored min/max bytes as plain
// physical values and applying the same logical-type conversion used for
// the column's regular values, so comparisons in filter.go operate on
// converted types (e.g. time.Time, string) rather than raw bytes.
func rowGroupStatsLookup(rg *format.RowGroup, schema *Schema, parsers ParserTable, utf8 bool) statsLookup {
	return func(column string) (any, any, bool) {
		leaf, ok := schema.ColumnByPath(column)
		if !ok {
			return nil, nil, false
		}
		for i := range rg.Columns {
			chunk := &rg.Columns[i]
			if columnChunkName(chunk) != column {
				continue
			}
			stats := chunk.MetaData.Statistics
			if stats == nil {
				return nil, nil, false
			}
			minBytes, maxBytes := stats.Min, stats.Max
			if stats.MinValue != nil {
				minBytes = stats.MinValue
			}
			if stats.MaxValue != nil {
				maxBytes = stats.MaxValue
			}
			if minBytes == nil || maxBytes == nil {
				return nil, nil, false
			}
			min, err := decodeStatValue(leaf, minBytes, utf8, parsers)
			if err != nil {
				return nil, nil, false
			}
			max, err := decodeStatValue(leaf, maxBytes, utf8, parsers)
			if err != nil {
				return nil, nil, false
			}
			return min, max, true
		}
		return nil, nil, false
	}
}

func decodeStatValue(leaf *Node, raw []byte, utf8 bool, parsers ParserTable) (any, error) {
	if leaf.Element.Type == nil {
		return nil, ErrSchemaConflict
	}
	decoded, err := decodePlainValues(*leaf.Element.Type, derefTypeLength(leaf), raw, 1)
	if err != nil {
		return nil, err
	}
	_, elemAt, err := anySliceAccessor(decoded)
	if err != nil {
		return nil, err
	}
	return convertLeafValue(leaf.Element, elemAt(0), utf8, parsers)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
