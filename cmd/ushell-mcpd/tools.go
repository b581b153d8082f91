package main

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/ushell-mcp/internal/catalog"
	"github.com/nextlevelbuilder/ushell-mcp/internal/config"
)

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the resolved catalog to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			printCatalogTable(cat)
			return nil
		},
	}
}

// printCatalogTable prints a name-padded table of every catalog tool.
// go-runewidth pads by display width rather than byte count, so
// multi-byte descriptions (from a localized commands.json) still line
// up in a terminal.
func printCatalogTable(cat *catalog.Catalog) {
	tools := cat.Tools()
	nameWidth := 0
	for _, t := range tools {
		if w := runewidth.StringWidth(t.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, t := range tools {
		pad := nameWidth - runewidth.StringWidth(t.Name)
		fmt.Printf("%s%*s  %s\n", t.Name, pad, "", t.Description)
	}
}
