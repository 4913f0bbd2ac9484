package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the configured watch list",
	RunE:  listCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)

	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "output as JSON")
}

func listCategories(cmd *cobra.Command, args []string) error {
	if categoriesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Categories)
	}

	for _, cat := range cfg.Categories {
		fmt.Printf("%s (%d keywords)\n", cat.Name, len(cat.Keywords))
		fmt.Printf("    %s\n", strings.Join(cat.Keywords, ", "))
	}
	return nil
}
