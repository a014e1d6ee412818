package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ersonp/roster-core/internal/application/handlers"
	"github.com/ersonp/roster-core/internal/domain/entities"
)

type groupsFlags struct {
	addresses string
	format    string
}

func newGroupsCmd() *cobra.Command {
	var flags groupsFlags

	cmd := &cobra.Command{
		Use:   "groups <file>",
		Short: "Show the group catalog derived from a roster",
		Long:  "Derives and prints the group catalog with categories and member counts. Nothing is written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.addresses, "addresses", "", "Separate file holding the addresses sheet")
	cmd.Flags().StringVarP(&flags.format, "format", "f", DefaultFormat, "Source format (auto, json, csv, xlsx)")

	return cmd
}

func runGroups(cmd *cobra.Command, filePath string, flags groupsFlags) error {
	if !contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	ctx := cmd.Context()

	return withPreviewHandler(func(handler *handlers.ImportHandler) error {
		result, err := handler.Preview(ctx, filePath, handlers.ImportOptions{
			Format:        flags.format,
			AddressesFile: flags.addresses,
		})
		if err != nil {
			return fmt.Errorf("reading groups: %w", err)
		}

		if len(result.Dataset.Groups) == 0 {
			pterm.Warning.Println("No groups found")
			return nil
		}

		return pterm.DefaultTable.WithHasHeader().
			WithData(groupsTable(result.Dataset)).
			Render()
	})
}

func groupsTable(ds *entities.Dataset) pterm.TableData {
	members := make(map[int64]int, len(ds.Groups))
	for _, m := range ds.Memberships {
		members[m.GroupID]++
	}

	data := pterm.TableData{{"ID", "Name", "Category", "Members"}}
	for _, g := range ds.Groups {
		data = append(data, []string{
			strconv.FormatInt(g.ID, 10),
			g.Name,
			string(g.Category),
			strconv.Itoa(members[g.ID]),
		})
	}
	return data
}
