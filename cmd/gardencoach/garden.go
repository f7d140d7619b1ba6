package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/gardencoach/internal/garden"
)

func newGardenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garden",
		Short: "Seed garden helpers",
	}
	cmd.AddCommand(newGardenLevelCmd(a), newGardenLeaderboardCmd(a), newGardenPalettesCmd(a))
	return cmd
}

func newGardenLevelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "level <seeds>",
		Short: "Show the flower level for a seed balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			seeds, err := strconv.Atoi(args[0])
			if err != nil || seeds < 0 {
				return fmt.Errorf("seeds must be a non-negative integer, got %q", args[0])
			}
			level := garden.FlowerLevel(seeds)
			fmt.Fprintf(a.out, "%d seeds: level %d/%d\n", seeds, level, garden.MaxLevel)
			if next := garden.SeedsToNextLevel(seeds); next > 0 {
				fmt.Fprintf(a.out, "%d more seeds to grow.\n", next)
			} else {
				fmt.Fprintln(a.out, "Full bloom: custom palettes unlocked.")
			}
			return nil
		},
	}
}

func newGardenLeaderboardCmd(a *app) *cobra.Command {
	var (
		name  string
		seeds int
		top   int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank your garden against the community",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if seeds < 0 {
				seeds = a.cfg.Garden.StartingSeeds
			}
			me := garden.Member{Name: name, Seeds: seeds, Motto: "Creciendo en Silencio", Title: "Tu Nivel"}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tGARDENER\tSEEDS\tLEVEL\tMOTTO")
			for _, e := range garden.Leaderboard(garden.DemoCommunity(), me, top) {
				marker := ""
				if e.Me {
					marker = " (you)"
				}
				fmt.Fprintf(tw, "%d\t%s%s\t%d\t%d\t%s\n", e.Rank, e.Name, marker, e.Seeds, garden.FlowerLevel(e.Seeds), e.Motto)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "Jardinero", "your display name")
	cmd.Flags().IntVar(&seeds, "seeds", -1, "your seed balance (default garden.starting_seeds)")
	cmd.Flags().IntVarP(&top, "top", "n", garden.DefaultLeaderboardSize, "number of gardeners to show")
	return cmd
}

func newGardenPalettesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "List flower palettes",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOST\tSTOPS")
			for _, p := range garden.Palettes() {
				cost := strconv.Itoa(garden.DefaultPaletteCost)
				if p.ID == garden.DefaultPalette {
					cost = "free"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s %s\n", p.ID, p.Name, cost, p.Stops[0], p.Stops[1], p.Stops[2])
			}
			return tw.Flush()
		},
	}
}
