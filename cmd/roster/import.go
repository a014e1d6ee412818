package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ersonp/roster-core/internal/application/handlers"
	"github.com/ersonp/roster-core/internal/domain/services"
	"github.com/ersonp/roster-core/internal/infrastructure/output"
)

type importFlags struct {
	addresses string
	format    string
	out       string
	emit      string
	db        string
	dryRun    bool
	runTime   string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a roster from XLSX, CSV or JSON",
		Long: "Reads the persons and addresses sheets, derives the group catalog and membership links, " +
			"writes them to the output directory and loads them into SQLite when a database is configured.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.addresses, "addresses", "", "Separate file holding the addresses sheet")
	cmd.Flags().StringVarP(&flags.format, "format", "f", DefaultFormat, "Source format (auto, json, csv, xlsx)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output directory (default: output.dir from config)")
	cmd.Flags().StringVar(&flags.emit, "emit", "", "Output formats, comma separated (default: output.formats from config)")
	cmd.Flags().StringVar(&flags.db, "db", "", "SQLite database to load into (default: sqlite.path from config)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Transform and report without writing or loading")
	cmd.Flags().StringVar(&flags.runTime, "run-time", "", "Run timestamp in RFC 3339, used as the default assignment date")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	if !contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	runAt, err := parseRunTime(flags.runTime)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withDeps(flags.db, func(d *Deps) error {
		opts := handlers.ImportOptions{
			Format:        flags.format,
			AddressesFile: flags.addresses,
			OutputDir:     d.Config.Output.Dir,
			Formats:       d.Config.Output.Formats,
			DryRun:        flags.dryRun,
			RunAt:         runAt,
		}
		if flags.out != "" {
			opts.OutputDir = flags.out
		}
		if flags.emit != "" {
			opts.Formats = output.ParseFormats(flags.emit)
		}

		pterm.Info.Printf("Importing %s...\n", filePath)

		result, err := d.ImportHandler.Handle(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		printSkipped(result.Skipped)

		if err := renderSummary(result.Stats); err != nil {
			return err
		}

		switch {
		case flags.dryRun:
			pterm.Info.Printf("Dry run: %d entities, %d groups, %d memberships would be written\n",
				len(result.Dataset.Entities), len(result.Dataset.Groups), len(result.Dataset.Memberships))
		default:
			if len(result.Written) > 0 {
				pterm.Success.Printf("Wrote %d files to %s\n", len(result.Written), opts.OutputDir)
			}
			if result.Loaded {
				pterm.Success.Printf("Loaded into %s\n", d.Config.SQLite.Path)
			}
		}

		return nil
	})
}

// parseRunTime parses the --run-time flag. An empty value means now.
func parseRunTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --run-time %q, expected RFC 3339 (e.g. 2024-03-01T12:00:00Z): %w", s, err)
	}
	return t.UTC(), nil
}

func printSkipped(skipped []*services.RowValidationError) {
	if len(skipped) == 0 {
		return
	}

	pterm.Warning.Printf("Skipped rows (%d):\n", len(skipped))
	for i, e := range skipped {
		if i == DefaultSkippedShown {
			fmt.Printf("  ... and %d more\n", len(skipped)-DefaultSkippedShown)
			break
		}
		fmt.Printf("  %s\n", e.Error())
	}
	fmt.Println()
}

func renderSummary(stats *services.Statistics) error {
	return pterm.DefaultTable.WithHasHeader().WithData(summaryTable(stats)).Render()
}

func summaryTable(stats *services.Statistics) pterm.TableData {
	data := pterm.TableData{
		{"Metric", "Value"},
		{"Entities", strconv.Itoa(stats.TotalEntities)},
		{"Groups", strconv.Itoa(stats.TotalGroups)},
		{"Memberships", strconv.Itoa(stats.TotalMemberships)},
		{"Entities without groups", strconv.Itoa(stats.EntitiesWithoutGroups)},
		{"Average members per group", strconv.FormatFloat(stats.AverageMembersPerGroup, 'f', 2, 64)},
		{"Rows skipped", strconv.Itoa(stats.RowsSkipped)},
		{"Blank rows", strconv.Itoa(stats.BlankRows)},
		{"Year tokens stripped", strconv.Itoa(stats.NoiseTokensStripped)},
		{"Shared e-mails", strconv.Itoa(len(stats.DuplicateEmails))},
	}
	for i, g := range stats.LargestGroups {
		if i == DefaultLargestGroups {
			break
		}
		data = append(data, []string{"Largest: " + g.Name, strconv.Itoa(g.Members)})
	}
	return data
}
