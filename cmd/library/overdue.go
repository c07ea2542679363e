package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var overdueDays int

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open loans past their due date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dueDays := cfg.DueDays
		if overdueDays > 0 {
			dueDays = overdueDays
		}

		app, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.close()

		loans, err := app.loans.Overdue(ctx, dueDays)
		if err != nil {
			return err
		}

		now := time.Now()
		table := tablewriter.NewTable(cmd.OutOrStdout())
		table.Header("Loan", "Borrower", "Book", "Borrowed", "Due", "Days")
		for _, l := range loans {
			title := l.BookID.String()
			if b, err := app.catalog.GetBook(ctx, l.BookID); err == nil {
				title = b.Title
			}
			err := table.Append(l.ID.String(), l.BorrowerID.String(), title,
				l.BorrowDate.Format(time.DateOnly), l.DueDate(dueDays).Format(time.DateOnly),
				strconv.Itoa(l.DaysBorrowed(now)))
			if err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d overdue (due after %d days)\n", len(loans), dueDays)
		return nil
	},
}

func init() {
	overdueCmd.Flags().IntVar(&overdueDays, "due-days", 0, "loan period in days (default from config)")
}
