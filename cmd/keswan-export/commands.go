package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"keswan/internal/cli"
	"keswan/internal/config"
	"keswan/internal/core"
	apphttp "keswan/internal/http"
	"keswan/internal/log"
	"keswan/internal/services"
	"keswan/internal/sheets/google"
)

// options are the flags shared by every report command.
type options struct {
	year      string
	month     string
	query     string
	format    string
	outDir    string
	publish   bool
	dimension string
	weight    string
	print     bool
}

type appKey struct{}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "keswan-export",
		Short:        "Render animal health service reports",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig((*config.Config).Validate)
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg.LogLevel)
			app, err := cli.NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app, ok := cmd.Context().Value(appKey{}).(*cli.App); ok {
				return app.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.year, "year", "", "Year to report on, or \"all\"")
	pf.StringVar(&opts.month, "month", "", "Month 1-12 or Indonesian name (default: all months)")
	pf.StringVarP(&opts.query, "query", "q", "", "Free-text filter")
	pf.StringVar(&opts.format, "format", "xlsx", "Output format: xlsx|pdf")
	pf.StringVarP(&opts.outDir, "out", "o", ".", "Output directory")
	pf.BoolVar(&opts.publish, "publish", false, "Publish to Google Sheets instead of writing a file")

	root.AddCommand(
		newReportCmd(opts, services.KindFacility, "facility", "One sheet per facility, grouped by officer"),
		newReportCmd(opts, services.KindRecap, "recap", "Medicine totals and case counts"),
		newStatsCmd(opts),
	)
	return root
}

func newReportCmd(opts *options, kind services.ReportKind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts, kind)
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Counts grouped by one dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.print {
				return printStats(cmd, opts)
			}
			return runReport(cmd, opts, services.KindStatistics)
		},
	}
	cmd.Flags().StringVar(&opts.dimension, "dimension", "month", "month|officer|facility|diagnosis|village|species|medicine")
	cmd.Flags().StringVar(&opts.weight, "weight", "visits", "visits|livestock")
	cmd.Flags().BoolVar(&opts.print, "print", false, "Print the table instead of exporting")
	return cmd
}

// values renders the flags as query values so the CLI accepts exactly
// what the HTTP API accepts.
func (o *options) values() url.Values {
	q := url.Values{}
	for key, v := range map[string]string{
		"year": o.year, "month": o.month, "q": o.query, "format": o.format,
		"dimension": o.dimension, "weight": o.weight,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return q
}

func appFrom(cmd *cobra.Command) (*cli.App, error) {
	app, ok := cmd.Context().Value(appKey{}).(*cli.App)
	if !ok {
		return nil, fmt.Errorf("application not initialized")
	}
	return app, nil
}

func runReport(cmd *cobra.Command, opts *options, kind services.ReportKind) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	req, err := apphttp.ParseExportRequest(string(kind), opts.values())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if opts.publish {
		client, err := google.New(ctx, cli.GoogleOptions(app.Config), app.Logger)
		if err != nil {
			return err
		}
		wb, name, err := app.Reports.Workbook(ctx, req)
		if err != nil {
			return err
		}
		ref, err := client.Publish(ctx, name, wb)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	}

	doc, err := app.Reports.Export(ctx, req)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(opts.outDir, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	app.Logger.Info("Report written", log.FieldReportKind, string(kind), "path", path, "bytes", len(doc.Body))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func printStats(cmd *cobra.Command, opts *options) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	q, err := apphttp.ParseStatsQuery(opts.values())
	if err != nil {
		return err
	}
	q.Percent = true
	items, err := app.Reports.Statistics(cmd.Context(), q)
	if err != nil {
		return err
	}
	return writeTable(cmd.OutOrStdout(), q.Dimension.Label(), items)
}

func writeTable(w io.Writer, label string, items []core.StatItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tJumlah\tPersentase\n", label)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s%%\n", it.Label, it.Count, strconv.FormatFloat(it.Percentage, 'f', 2, 64))
	}
	return tw.Flush()
}
