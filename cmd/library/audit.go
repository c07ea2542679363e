package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("book counters disagree with open loans")

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check that every book's available count matches its open loans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.close()

		res, err := app.auditor.Run(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "audited %d books in %s\n", res.Books, res.Duration)
		for _, v := range res.Violations {
			fmt.Fprintf(out, "  %s: expected %s %.0f, got %.0f\n", v.Check, v.Operator, v.Expected, v.Actual)
		}
		if len(res.Drifts) > 0 {
			table := tablewriter.NewTable(out)
			table.Header("Kind", "Book", "Title", "Copies", "Available", "Open loans", "Expected")
			for _, d := range res.Drifts {
				err := table.Append(d.Kind, d.BookID.String(), d.Title, strconv.Itoa(d.Copies),
					strconv.Itoa(d.Available), strconv.Itoa(d.OpenLoans), strconv.Itoa(d.Expected()))
				if err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
		}
		if !res.Healthy {
			return errUnhealthy
		}
		fmt.Fprintln(out, "ok")
		return nil
	},
}
