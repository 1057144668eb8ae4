package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/review"
)

var (
	reviewPlaceID     string
	reviewName        string
	reviewLat         float64
	reviewLng         float64
	reviewAddress     string
	reviewRating      int
	reviewCleanliness int
	reviewAmenities   []string
	reviewDescription string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage reviews",
}

func buildSubmission() review.Submission {
	sub := review.Submission{
		PlaceID:     reviewPlaceID,
		Name:        reviewName,
		Coordinate:  geo.Coordinate{Latitude: reviewLat, Longitude: reviewLng},
		Rating:      reviewRating,
		Cleanliness: reviewCleanliness,
		Amenities:   reviewAmenities,
	}
	if reviewAddress != "" {
		sub.Address = &reviewAddress
	}
	if reviewDescription != "" {
		sub.Description = &reviewDescription
	}
	return sub
}

func printResult(w io.Writer, res *review.Result) {
	fmt.Fprintf(w, "review %s added to %s (%s)\n", res.Review.ID, res.Location.Name, res.Location.ID)
	if res.Created {
		fmt.Fprintln(w, "new bathroom created")
	}
}

var reviewAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Submit a review, creating the bathroom if it is new",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := initApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		res, err := a.reviews.Submit(cmd.Context(), buildSubmission())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := reviewAddCmd.Flags()
	f.StringVar(&reviewPlaceID, "place-id", "", "external place ID of the bathroom")
	f.StringVar(&reviewName, "name", "", "bathroom name, used when no place ID is given")
	f.Float64Var(&reviewLat, "lat", 0, "latitude, required for a new bathroom")
	f.Float64Var(&reviewLng, "lng", 0, "longitude, required for a new bathroom")
	f.StringVar(&reviewAddress, "address", "", "street address")
	f.IntVar(&reviewRating, "rating", 0, "overall rating 1-5")
	f.IntVar(&reviewCleanliness, "cleanliness", 0, "cleanliness rating 1-5")
	f.StringSliceVar(&reviewAmenities, "amenity", nil, "amenity present (repeatable)")
	f.StringVar(&reviewDescription, "description", "", "free-text review")
	_ = reviewAddCmd.MarkFlagRequired("rating")
	_ = reviewAddCmd.MarkFlagRequired("cleanliness")

	reviewCmd.AddCommand(reviewAddCmd)
	rootCmd.AddCommand(reviewCmd)
}
