package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bathroom-finder/internal/explore"
	"github.com/sells-group/bathroom-finder/internal/export"
	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

var (
	nearbyLat         float64
	nearbyLng         float64
	nearbyMinRating   float64
	nearbyMaxDistance float64
	nearbyAmenities   []string
	nearbySort        string
	nearbyXLSX        string
)

// buildQuery turns flag values into a view query. A negative maxDistance
// means no distance limit.
func buildQuery(lat, lng, minRating, maxDistance float64, amenities []string, sort string) (explore.Query, error) {
	pos := geo.Coordinate{Latitude: lat, Longitude: lng}
	if !pos.IsFinite() {
		return explore.Query{}, eris.New("nearby: position must be finite")
	}

	key, err := model.ParseSortKey(sort)
	if err != nil {
		return explore.Query{}, err
	}

	f := model.DefaultFilters()
	f.MinRating = minRating
	if maxDistance >= 0 {
		f.MaxDistanceKm = maxDistance
	}
	f.RequiredAmenities = model.NewAmenitySet(amenities...)

	return explore.Query{Position: pos, Filters: f, Sort: key}, nil
}

func formatDistance(km float64) string {
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return "-"
	}
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.2f km", km)
}

func printView(w io.Writer, view []model.DerivedLocation) error {
	if len(view) == 0 {
		_, err := fmt.Fprintln(w, "no bathrooms match")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISTANCE\tRATING\tCLEAN\tREVIEWS\tAMENITIES")
	for _, d := range view {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%d\t%s\n",
			d.Name, formatDistance(d.DistanceKm), d.AverageRating, d.AverageCleanliness,
			d.ReviewCount, strings.Join(d.Amenities.Strings(), ","))
	}
	return tw.Flush()
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List stored bathrooms ranked around a position",
	RunE: func(cmd *cobra.Command, args []string) error {
		sort := nearbySort
		if sort == "" {
			sort = cfg.Explore.DefaultSort
		}
		q, err := buildQuery(nearbyLat, nearbyLng, nearbyMinRating, nearbyMaxDistance, nearbyAmenities, sort)
		if err != nil {
			return err
		}

		a, err := initApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		view, err := a.explorer.View(cmd.Context(), q)
		if err != nil {
			return eris.Wrap(err, "nearby: build view")
		}

		if nearbyXLSX == "" {
			return printView(cmd.OutOrStdout(), view)
		}

		f, err := os.Create(nearbyXLSX)
		if err != nil {
			return eris.Wrapf(err, "nearby: create %s", nearbyXLSX)
		}
		defer f.Close() //nolint:errcheck
		if err := export.WriteXLSX(f, view); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bathrooms to %s\n", len(view), nearbyXLSX)
		return nil
	},
}

func init() {
	f := nearbyCmd.Flags()
	f.Float64Var(&nearbyLat, "lat", 0, "latitude of the user")
	f.Float64Var(&nearbyLng, "lng", 0, "longitude of the user")
	f.Float64Var(&nearbyMinRating, "min-rating", 0, "minimum average rating")
	f.Float64Var(&nearbyMaxDistance, "max-distance", -1, "maximum distance in km (negative for any)")
	f.StringSliceVar(&nearbyAmenities, "amenity", nil, "required amenity (repeatable)")
	f.StringVar(&nearbySort, "sort", "", "sort order: distance, rating or newest (default from config)")
	f.StringVar(&nearbyXLSX, "xlsx", "", "write the view to an xlsx file instead of printing")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(nearbyCmd)
}
