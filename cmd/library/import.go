package main

import (
	"fmt"
	"libraloan/internal/upload"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var importKinds = map[string]string{
	"books":    upload.KindBooks,
	"users":    upload.KindUsers,
	"packages": upload.KindPackages,
}

var importCmd = &cobra.Command{
	Use:   "import <books|users|packages> <file.csv>",
	Short: "Load a CSV file into the catalog or member list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := importKinds[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown data type %q", args[0])
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		app, err := buildApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer app.close()

		report, err := app.importer.Import(cmd.Context(), kind, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], report)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <books.csv>",
	Short: "Populate an empty catalog from a books CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		books, err := upload.ParseBooks(f)
		if err != nil {
			return err
		}
		app, err := buildApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer app.close()

		report, err := app.catalog.SeedIfEmpty(cmd.Context(), books)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seed: %s\n", report)
		return nil
	},
}
