package main

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bathroom-finder/internal/config"
	"github.com/sells-group/bathroom-finder/internal/discovery"
	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/resilience"
	"github.com/sells-group/bathroom-finder/pkg/google"
	"github.com/sells-group/bathroom-finder/pkg/overpass"
)

var errNoSources = eris.New("no discovery sources configured (set BATHROOM_GOOGLE_KEY or enable overpass)")

// buildFinder wires the enabled place sources. Google needs an API key;
// Overpass is keyless and toggled by config.
func buildFinder(c *config.Config) (*discovery.Finder, error) {
	var sources []discovery.Source

	if c.Google.Key != "" {
		client := google.NewClient(c.Google.Key,
			google.WithBaseURL(c.Google.BaseURL),
			google.WithRateLimit(c.Google.RatePerSec, c.Google.Burst),
			google.WithRetry(resilience.FromRetryConfig(c.Google.RetryAttempts, c.Google.RetryBackoffMs, 0)),
		)
		sources = append(sources, discovery.NewGoogleSource(client, c.Google.Types...))
	}

	if c.Overpass.Enabled {
		opts := []overpass.Option{overpass.WithEndpoint(c.Overpass.Endpoint)}
		if c.Overpass.TimeoutSecs > 0 {
			opts = append(opts, overpass.WithHTTPClient(&http.Client{
				Timeout: time.Duration(c.Overpass.TimeoutSecs) * time.Second,
			}))
		}
		sources = append(sources, discovery.NewOverpassSource(overpass.NewClient(opts...)))
	}

	if len(sources) == 0 {
		return nil, errNoSources
	}

	return discovery.NewFinder(sources,
		discovery.WithRadius(c.Google.RadiusM),
		discovery.WithBreaker(resilience.BreakerConfig{
			FailureThreshold: c.Discovery.BreakerThreshold,
			Cooldown:         time.Duration(c.Discovery.BreakerCooldownSecs) * time.Second,
		}),
	), nil
}

func printCandidates(w io.Writer, cands []discovery.Candidate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIST M\tSOURCE\tPLACE ID\tADDRESS")
	for _, c := range cands {
		fmt.Fprintf(tw, "%s\t%.0f\t%s\t%s\t%s\n", c.Name, c.DistanceKm*1000, c.Source, c.PlaceID, c.Address)
	}
	return tw.Flush()
}

var (
	placesLat    float64
	placesLng    float64
	placesRadius int
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Discover candidate places near a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		finder, err := buildFinder(cfg)
		if err != nil {
			return err
		}

		center := geo.Coordinate{Latitude: placesLat, Longitude: placesLng}
		cands, err := finder.Nearby(cmd.Context(), center, placesRadius)
		if err != nil {
			return eris.Wrap(err, "places: nearby")
		}
		return printCandidates(cmd.OutOrStdout(), cands)
	},
}

func init() {
	placesCmd.Flags().Float64Var(&placesLat, "lat", 0, "latitude of the search center")
	placesCmd.Flags().Float64Var(&placesLng, "lng", 0, "longitude of the search center")
	placesCmd.Flags().IntVar(&placesRadius, "radius", 0, "search radius in meters (default from config)")
	_ = placesCmd.MarkFlagRequired("lat")
	_ = placesCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(placesCmd)
}
