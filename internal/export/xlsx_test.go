package export

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	addr := "1 Main St"
	view := []model.DerivedLocation{
		{
			Location: model.Location{
				Name:       "Cafe",
				Address:    &addr,
				Coordinate: geo.Coordinate{Latitude: 1.5, Longitude: 2.5},
				Amenities:  model.NewAmenitySet("free", "well_lit"),
				CreatedAt:  time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
			},
			AverageRating:      4.5,
			AverageCleanliness: 3,
			ReviewCount:        2,
			DistanceKm:         0.12345,
		},
		{
			Location:   model.Location{Name: "Broken"},
			DistanceKm: math.NaN(),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, view))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	assert.Equal(t, "Name", header.Cells[0].String())
	assert.Equal(t, "Created", header.Cells[len(Header)-1].String())

	row := sheet.Rows[1]
	assert.Equal(t, "Cafe", row.Cells[0].String())
	assert.Equal(t, "1 Main St", row.Cells[1].String())
	dist, err := row.Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.123, dist, 1e-9)
	rating, err := row.Cells[5].Float()
	require.NoError(t, err)
	assert.InDelta(t, 4.5, rating, 1e-9)
	n, err := row.Cells[7].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Free to Use, Well Lit", row.Cells[8].String())
	assert.Equal(t, "2024-02-03T04:05:06Z", row.Cells[9].String())

	broken := sheet.Rows[2]
	assert.Equal(t, "Broken", broken.Cells[0].String())
	assert.Equal(t, "", broken.Cells[4].String())
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Len(t, f.Sheets[0].Rows, 1)
}
