// Package export writes ranked bathroom views to spreadsheet files.
package export

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bathroom-finder/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Bathrooms"

// Header is the first row of the sheet.
var Header = []string{
	"Name", "Address", "Latitude", "Longitude", "Distance (km)",
	"Avg Rating", "Avg Cleanliness", "Reviews", "Amenities", "Created",
}

// WriteXLSX writes view as a single-sheet workbook in view order.
func WriteXLSX(w io.Writer, view []model.DerivedLocation) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, d := range view {
		row := sheet.AddRow()
		row.AddCell().SetString(d.Name)
		addr := ""
		if d.Address != nil {
			addr = *d.Address
		}
		row.AddCell().SetString(addr)
		row.AddCell().SetFloat(d.Coordinate.Latitude)
		row.AddCell().SetFloat(d.Coordinate.Longitude)
		distance := row.AddCell()
		if !math.IsNaN(d.DistanceKm) && !math.IsInf(d.DistanceKm, 0) {
			distance.SetFloat(math.Round(d.DistanceKm*1000) / 1000)
		}
		row.AddCell().SetFloat(d.AverageRating)
		row.AddCell().SetFloat(d.AverageCleanliness)
		row.AddCell().SetInt(d.ReviewCount)
		labels := make([]string, 0, len(d.Amenities))
		for _, a := range d.Amenities.Slice() {
			labels = append(labels, a.Label())
		}
		row.AddCell().SetString(strings.Join(labels, ", "))
		row.AddCell().SetString(d.CreatedAt.UTC().Format(time.RFC3339))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
