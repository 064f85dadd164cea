package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Date", "Subject", "Room"},
		Rows: []map[string]string{
			{"Date": "2024-09-02", "Subject": "Математика, лекція", "Room": "101"},
			{"Date": "2024-09-03", "Subject": "Physics"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("\ufeff")))
	body := string(out[len("\ufeff"):])
	assert.Equal(t, "Date,Subject,Room\n2024-09-02,\"Математика, лекція\",101\n2024-09-03,Physics,\n", body)
}

func TestCSVExporterWithoutBOM(t *testing.T) {
	out, err := (&CSVExporter{}).Render(Dataset{Headers: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, "A\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
	_, err = NewPDFExporter("").Render(Dataset{}, "", nil)
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Date", "Subject"},
		Rows:    []map[string]string{{"Date": "2024-09-02", "Subject": "Physics"}},
	}
	out, err := NewPDFExporter("").Render(data, "Group KN-21", []float64{1, 3})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{50, 50}, columnWidths(2, nil, 100))
	assert.Equal(t, []float64{25, 75}, columnWidths(2, []float64{1, 3}, 100))
}
