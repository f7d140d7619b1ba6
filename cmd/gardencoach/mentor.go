package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/gardencoach/internal/config"
	"github.com/MrWong99/gardencoach/internal/journal"
	"github.com/MrWong99/gardencoach/internal/mentor"
)

// newMentor builds the mentor from the loaded configuration.
func (a *app) newMentor() (*mentor.Mentor, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	return buildMentor(a.cfg.Mentor, reg)
}

func newJournalCmd(a *app) *cobra.Command {
	var history int
	cmd := &cobra.Command{
		Use:   "journal <entry>...",
		Short: "Get a short reflection and tip on a journal entry",
		Long: `journal sends an entry to the mentor and prints its reflection. When
mentor.journal_path is set the entry and reflection are kept there, and
--history lists the most recent ones.`,
		Example: `  gardencoach journal "Hoy no avancé con mi tienda online y me siento frustrado"
  gardencoach journal --history 5`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("history") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.journalStore()
			if cmd.Flags().Changed("history") {
				if store == nil {
					return fmt.Errorf("journal history needs mentor.journal_path")
				}
				return printJournal(a.out, store, history)
			}

			m, err := a.newMentor()
			if err != nil {
				return err
			}
			entry := strings.Join(args, " ")
			reflection := m.AnalyzeJournal(cmd.Context(), entry)
			fmt.Fprintln(a.out, reflection)
			if store != nil {
				if _, err := store.Append(entry, reflection); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&history, "history", 10, "list the most recent journal entries instead (0 for all)")
	return cmd
}

// journalStore returns the configured journal, or nil when history is off.
func (a *app) journalStore() *journal.FileStore {
	if a.cfg.Mentor.JournalPath == "" {
		return nil
	}
	return journal.NewFileStore(a.cfg.Mentor.JournalPath)
}

func printJournal(w io.Writer, store *journal.FileStore, limit int) error {
	entries, err := store.List(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "Your journal is empty.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.Date.Local().Format("2006-01-02 15:04"), e.Content)
		if e.Reflection != "" {
			fmt.Fprintf(w, "    %s\n", e.Reflection)
		}
	}
	return nil
}

func newIdeasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ideas <interest>...",
		Short:   "Generate three business ideas grounded on current trends",
		Example: `  gardencoach ideas moda sostenible "café de especialidad"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newMentor()
			if err != nil {
				return err
			}
			ideas := m.GenerateIdeas(cmd.Context(), args)
			if len(ideas) == 0 {
				fmt.Fprintln(a.out, "No ideas sprouted this time. Try again in a moment.")
				return nil
			}
			for i, idea := range ideas {
				fmt.Fprintf(a.out, "%d. %s\n   %s\n", i+1, idea.Title, idea.Description)
			}
			return nil
		},
	}
}

func newSpacesCmd(a *app) *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:     "spaces",
		Short:   "Find nearby places to work or recharge",
		Example: `  gardencoach spaces --lat -34.6037 --lng -58.3816`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				return fmt.Errorf("coordinates out of range: %.4f, %.4f", lat, lng)
			}
			m, err := a.newMentor()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, m.FindLocalSpaces(cmd.Context(), lat, lng))
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude in degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
