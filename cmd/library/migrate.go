package main

import (
	"fmt"
	"libraloan/internal/migrate"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "up"
		if len(args) == 1 {
			dir = args[0]
		}
		ctx := cmd.Context()
		switch dir {
		case "up":
			return migrate.Up(ctx, cfg.DatabaseDSN)
		case "down":
			return migrate.Down(ctx, cfg.DatabaseDSN)
		case "status":
			return migrate.Status(ctx, cfg.DatabaseDSN)
		}
		return fmt.Errorf("unknown direction %q", dir)
	},
}
