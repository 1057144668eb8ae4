package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/bathroom-finder/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Import bathrooms and reviews from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := seed.Load(args[0])
		if err != nil {
			return err
		}

		a, err := initApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		sum, err := seed.Apply(cmd.Context(), a.reviews, entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d bathrooms and %d reviews\n", sum.Bathrooms, sum.Reviews)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
