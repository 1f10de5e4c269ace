package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	"github.com/ahmedoothman/expanders360-api/internal/domain/batch"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
	domvendor "github.com/ahmedoothman/expanders360-api/internal/domain/vendor"
	logpkg "github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/version"
)

// withApplication loads config, wires the application and runs fn with a logger-carrying context.
func withApplication(cmd *cobra.Command, fn func(cmd *cobra.Command, a *application) error) error {
	cfg, _, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := logpkg.ContextWithLogger(cmd.Context(), logger)
	cmd.SetContext(ctx)

	a, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd, a)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <project-id>",
	Short: "Recompute the vendor matches of one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || projectID <= 0 {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		return withApplication(cmd, func(cmd *cobra.Command, a *application) error {
			matches, err := a.matching.Rebuild(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			a.analytics.Invalidate()
			a.dispatcher.Notify(cmd.Context(), projectID, matches)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "MATCH_ID\tVENDOR_ID\tSCORE")
			for _, m := range matches {
				_, _ = fmt.Fprintf(w, "%d\t%d\t%.2f\n", m.ID(), m.VendorID(), m.Score())
			}
			return w.Flush()
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh over all active projects and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd, func(cmd *cobra.Command, a *application) error {
			report, err := a.scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), report)
		})
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print the top vendors per country",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		days, err := cmd.Flags().GetInt("days")
		if err != nil {
			return err
		}
		if days < 0 {
			return fmt.Errorf("--days must be positive, got %d", days)
		}
		return withApplication(cmd, func(cmd *cobra.Command, a *application) error {
			report, err := a.analytics.TopVendorsByCountry(cmd.Context(), days)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the reference vendor and project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd, func(cmd *cobra.Command, a *application) error {
			ctx := cmd.Context()
			v, err := domvendor.New("Global Business Solutions",
				[]string{"Germany", "France", "Italy"},
				[]string{"legal", "accounting", "compliance"},
				4.5, 12)
			if err != nil {
				return err
			}
			if v, err = a.vendors.Create(ctx, v); err != nil {
				return err
			}

			p, err := domproject.New(1, "Germany", []string{"legal", "accounting"}, 50000, domproject.StatusActive)
			if err != nil {
				return err
			}
			if p, err = a.projects.Create(ctx, p); err != nil {
				return err
			}

			a.logger.Info("Database seeded",
				zap.Int64("vendor_id", v.ID()),
				zap.Int64("project_id", p.ID()),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded vendor %d and project %d\n", v.ID(), p.ID())
			return err
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), app, version.String())
	},
}

func init() {
	analyticsCmd.Flags().Int("days", 0, "window in days (default: analytics.window_days)")
}

func printRun(out io.Writer, r batch.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "run %s: %d succeeded, %d failed in %s\n",
		r.RunID, r.Succeeded(), len(r.Failed()), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	_, _ = fmt.Fprintln(w, "PROJECT_ID\tSTATUS\tMATCHES\tERROR")
	for _, res := range r.Results {
		msg := ""
		if res.Err() != nil {
			msg = res.Err().Error()
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", res.ProjectID(), res.Status(), res.Matches(), msg)
	}
	return w.Flush()
}

func printReport(out io.Writer, r domanalytics.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tRANK\tVENDOR_ID\tVENDOR\tAVG_SCORE\tDOCUMENTS")
	for _, country := range r.Countries() {
		cr := r[country]
		for i, v := range cr.TopVendors {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.2f\t%d\n",
				country, i+1, v.VendorID, v.VendorName, v.AvgScore, cr.DocumentCount)
		}
	}
	return w.Flush()
}
