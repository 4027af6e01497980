package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{
		Headers: []string{"block_id", "status", "description"},
		Weights: map[string]float64{"description": 4},
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"block_id":    "1001",
			"status":      "impossible",
			"description": strings.Repeat("Total visibility is shorter than the requested duration ", 3),
		})
	}
	return data
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"block_id", "status"},
		Rows:    []map[string]string{{"block_id": "1", "status": "valid"}, {"status": "error"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "block_id,status\n1,valid\n,error\n", string(out))
}

func TestCSVExporterWriteStreams(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVExporter().Write(&buf, Dataset{
		Headers: []string{"block_id", "description"},
		Rows:    []map[string]string{{"block_id": "7", "description": "dec, out of range"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "block_id,description\n7,\"dec, out of range\"\n", buf.String())
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRenderPaginates(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(120), "Validation report", "Schedule 7")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsUseWeights(t *testing.T) {
	widths := columnWidths(sampleDataset(0), 120)
	assert.InDelta(t, 20, widths[0], 1e-9)
	assert.InDelta(t, 20, widths[1], 1e-9)
	assert.InDelta(t, 80, widths[2], 1e-9)
}
