package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/domain/timeline"
)

func newReservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Inspect and cancel reservations (non-webhook)",
	}
	cmd.AddCommand(newReservationListCmd())
	cmd.AddCommand(newReservationCancelCmd())
	return cmd
}

func newReservationListCmd() *cobra.Command {
	var date string
	c := &cobra.Command{
		Use:   "list",
		Short: "List confirmed reservations for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := timeline.Normalize(date, time.Now().In(a.cfg.Location))
			if err != nil {
				return err
			}
			rs, err := a.svc.ListDay(ctx, d)
			if err != nil {
				return err
			}
			total := 0
			for _, r := range rs {
				start := "??:??"
				if r.HasStart {
					start = r.StartText()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "id=%s date=%s time=%s guests=%d name=%q phone=%q\n",
					r.ID, r.Date, start, r.Guests, r.Name, r.Phone)
				total += r.Guests
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d reservations, %d guests\n", len(rs), total)
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "today", "date to list")
	return c
}

func newReservationCancelCmd() *cobra.Command {
	var id string
	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a reservation by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.svc.CancelReservation(ctx, usecases.CancelInput{ID: id})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled id=%s date=%s time=%s guests=%d\n", r.ID, r.Date, r.StartText(), r.Guests)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "reservation id")
	_ = c.MarkFlagRequired("id")
	return c
}
