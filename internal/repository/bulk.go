package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// maxBindParameters is PostgreSQL's limit of bound parameters per statement.
const maxBindParameters = 65535

// ChunkSizer returns how many rows of the given column count go into one
// multi-row statement.
type ChunkSizer func(columns int) int

func defaultChunkSizer(columns int) int {
	size := 1000
	if columns > 0 && size*columns > maxBindParameters {
		size = maxBindParameters / columns
	}
	return size
}

func chunkSize(sizer ChunkSizer, columns int) int {
	if sizer == nil {
		sizer = defaultChunkSizer
	}
	size := sizer(columns)
	if size <= 0 {
		size = 1
	}
	if columns > 0 && size*columns > maxBindParameters {
		size = maxBindParameters / columns
	}
	return size
}

// bulkExec writes rows with one multi-row INSERT per chunk. head is the
// statement up to and including VALUES, tail is appended after each value
// list (typically an ON CONFLICT clause).
func bulkExec(ctx context.Context, target sqlx.ExtContext, head, tail string, columns int, size int, rows [][]interface{}) (int64, error) {
	var affected int64
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var builder strings.Builder
		builder.WriteString(head)
		args := make([]interface{}, 0, len(chunk)*columns)
		for i, values := range chunk {
			if len(values) != columns {
				return affected, fmt.Errorf("row %d has %d values, want %d", start+i, len(values), columns)
			}
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString("(")
			for j := range values {
				if j > 0 {
					builder.WriteString(", ")
				}
				builder.WriteString(fmt.Sprintf("$%d", len(args)+j+1))
			}
			builder.WriteString(")")
			args = append(args, values...)
		}
		builder.WriteString(tail)

		result, err := target.ExecContext(ctx, builder.String(), args...)
		if err != nil {
			return affected, err
		}
		if n, err := result.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}
