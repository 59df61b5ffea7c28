package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/domeara/becool/internal/observability"
	"github.com/domeara/becool/internal/present"
	"github.com/domeara/becool/internal/validation"
)

var (
	findRadius float64
	findRanked bool
)

var findCmd = &cobra.Command{
	Use:   "find <zip>",
	Short: "find the coolest zip code within a radius",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

func init() {
	findCmd.Flags().Float64VarP(&findRadius, "radius", "r", 0, "radius in miles (default from config, 10)")
	findCmd.Flags().BoolVar(&findRanked, "ranked", false, "print the full ranked list")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	logger, err := observability.NewCLILogger(verbose)
	if err != nil {
		return fmt.Errorf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	zip, err := validation.ValidateZip(args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer p.close(logger)

	radius := findRadius
	if radius == 0 {
		radius = p.cfg.DefaultRadiusMiles
	}
	if err := validation.ValidateRadius(radius, p.cfg.MaxRadiusMiles); err != nil {
		return err
	}

	count, err := p.svc.CandidateCount(zip, radius)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "There are %d zip codes within a %g mile radius.\n", count, radius)
	fmt.Fprintln(cmd.OutOrStdout(), "Finding weather...")

	ctx := context.WithValue(cmd.Context(), "logger", logger)
	result, err := p.svc.FindCoolest(ctx, zip, radius)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), present.Format(result))
	if findRanked {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), present.FormatRanked(result))
	}
	return nil
}
