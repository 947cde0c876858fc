// Command ximport exports X posts into an Obsidian vault as per-day
// Markdown documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ximport/internal/app"
	"ximport/internal/config"
	"ximport/internal/logging"
	"ximport/internal/scheduler"
	"ximport/internal/types"
)

const dateFormat = "2006-01-02"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		endDate  string
		refresh  bool
		schedule bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "ximport [date]",
		Short: "Export X posts to Obsidian Markdown",
		Long: `ximport fetches your X posts and writes one Markdown document per
local calendar day into your Obsidian vault.

With no arguments it exports yesterday. A date argument (YYYY-MM-DD)
exports that day; combined with --end it exports the inclusive range.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			log, err := logging.New(verbose, cfg.LogDir(), loc)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}

			if schedule {
				return runScheduled(cfg, loc, log, a)
			}

			period, err := resolvePeriod(args, endDate, loc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = a.Run(ctx, app.RunOptions{Period: period, Refresh: refresh})
			return err
		},
	}

	cmd.Flags().StringVar(&endDate, "end", "", "last day of the range, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and refetch from the API")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "run as a daemon exporting yesterday at the configured time")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on the console")
	return cmd
}

// resolvePeriod turns the CLI date arguments into a half-open UTC period.
// Days are calendar days in loc; no arguments means yesterday.
func resolvePeriod(args []string, endDate string, loc *time.Location) (types.Period, error) {
	if len(args) == 0 {
		if endDate != "" {
			return types.Period{}, fmt.Errorf("--end requires a start date argument")
		}
		today := midnight(time.Now().In(loc))
		return types.Period{Start: today.AddDate(0, 0, -1).UTC(), End: today.UTC()}, nil
	}

	start, err := time.ParseInLocation(dateFormat, args[0], loc)
	if err != nil {
		return types.Period{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
	}
	end := start
	if endDate != "" {
		end, err = time.ParseInLocation(dateFormat, endDate, loc)
		if err != nil {
			return types.Period{}, fmt.Errorf("invalid end date %q (want YYYY-MM-DD)", endDate)
		}
		if end.Before(start) {
			return types.Period{}, fmt.Errorf("end date %s is before start date %s", endDate, args[0])
		}
	}
	return types.Period{Start: start.UTC(), End: end.AddDate(0, 0, 1).UTC()}, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// runScheduled blocks, exporting the previous local day every day at the
// configured time, until interrupted.
func runScheduled(cfg *config.Config, loc *time.Location, log *zap.Logger, a *app.App) error {
	s := scheduler.New(loc, log)
	err := s.AddDailyJob("daily-export", cfg.Schedule.Time, func(ctx context.Context) error {
		today := midnight(time.Now().In(loc))
		period := types.Period{Start: today.AddDate(0, 0, -1).UTC(), End: today.UTC()}
		_, err := a.Run(ctx, app.RunOptions{Period: period})
		return err
	})
	if err != nil {
		return err
	}

	s.Start()
	log.Info("scheduler running", zap.String("daily_at", cfg.Schedule.Time), zap.String("timezone", loc.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	<-s.Stop().Done()
	return nil
}
