package main

import (
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sitesCmd)
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the registered marketplace sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry(slog.Default())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Fetch Strategy"})
		for _, d := range reg.All() {
			strategy := "static"
			if d.RequiresBrowser {
				strategy = "browser rendering"
			}
			t.AppendRow(table.Row{d.ID, d.Name, strategy})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
