package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/tablesched/internal/application/usecases"
	"github.com/example/tablesched/internal/domain/timeline"
)

func newCheckCmd() *cobra.Command {
	var in usecases.Input

	c := &cobra.Command{
		Use:   "check",
		Short: "Check availability for a party against the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.CheckAvailability(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "date=%s time=%s guests=%d available=%t occupied=%d remaining=%d\n",
				res.Date, timeline.ToWallClock(res.Start), res.Guests, res.Available, res.OccupiedGuests, res.RemainingSeats)
			if res.Code != "" {
				fmt.Fprintf(out, "code=%s reason=%q\n", res.Code, res.Reason)
			}
			if len(res.Alternatives) > 0 {
				alts := make([]string, 0, len(res.Alternatives))
				for _, m := range res.Alternatives {
					alts = append(alts, timeline.ToWallClock(m))
				}
				fmt.Fprintf(out, "alternatives=%s\n", strings.Join(alts, ","))
			}
			return nil
		},
	}

	c.Flags().StringVar(&in.Date, "date", "", "date, e.g. 2025-06-03, 3.6., morgen, Friday")
	c.Flags().StringVar(&in.Time, "time", "", "start time, e.g. 19:00 or 19 Uhr")
	c.Flags().IntVar(&in.Guests, "guests", 2, "party size")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("time")
	return c
}
