// Package main provides dashctl, an offline client for the dashboard
// pipeline. It reads CSV or XLSX files from disk and prints the rendered
// view, writes the filtered export or lists a dashboard's column contract.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/app"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/config"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

type options struct {
	configPath string
	logLevel   string
	years      []string
	filters    []string
	params     []string
	pretty     bool
	format     string
	outputPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "dashctl",
		Short:         "Render education dashboards from local files",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default: none)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	viewCmd := &cobra.Command{
		Use:   "view <dashboard> [files...]",
		Short: "Print the rendered view as JSON",
		Long: `Loads the files into the dashboard and prints the rendered view.
Without files the dashboard's built-in data is used when it has any.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts, args[0], args[1:])
		},
	}
	addSelectionFlags(viewCmd, opts)
	viewCmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")

	exportCmd := &cobra.Command{
		Use:   "export <dashboard> <files...>",
		Short: "Write the filtered records as CSV or XLSX",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args[0], args[1:])
		},
	}
	addSelectionFlags(exportCmd, opts)
	exportCmd.Flags().StringVar(&opts.format, "format", "csv", "Export format: csv or xlsx")
	exportCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path (default: the export file name)")

	schemaCmd := &cobra.Command{
		Use:   "schema [dashboard]",
		Short: "List the columns each dashboard expects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, opts, args)
		},
	}

	rootCmd.AddCommand(viewCmd, exportCmd, schemaCmd)
	return rootCmd
}

func addSelectionFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringSliceVar(&opts.years, "year", nil, "Restrict the year column (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.filters, "filter", "f", nil, "Column filter as column=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Render parameter as id=value (repeatable)")
}

func newService(cmd *cobra.Command, opts *options) (*services.DatasetService, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = opts.logLevel
	cfg.Logging.Output = "console"

	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	registry, err := app.BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return services.NewDatasetService(registry, app.DatasetOptions(cfg), nil, logger), nil
}

// load reads the files into the dashboard and returns the dataset id; without
// files the built-in dataset is addressed
func load(ctx context.Context, s *services.DatasetService, stderr io.Writer, name string, paths []string) (string, error) {
	if len(paths) == 0 {
		return dashboard.DefaultDatasetID, nil
	}

	sources := make([]ingest.Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		sources = append(sources, ingest.Source{Name: filepath.Base(p), Data: data})
	}

	summary, err := s.Load(ctx, name, sources)
	if err != nil {
		return "", err
	}
	for _, fe := range summary.FileErrors {
		fmt.Fprintf(stderr, "skipped %s: %s\n", fe.File, fe.Error)
	}
	return summary.ID, nil
}

// request turns the selection flags into the query form the HTTP API accepts
func request(s *services.DatasetService, name string, opts *options) (dashboard.Request, error) {
	d, err := s.Dashboard(name)
	if err != nil {
		return dashboard.Request{}, err
	}

	q := url.Values{}
	for _, y := range opts.years {
		q.Add(dashboard.YearParam, y)
	}
	for _, f := range opts.filters {
		col, val, ok := strings.Cut(f, "=")
		if !ok || col == "" {
			return dashboard.Request{}, apierrors.NewAppValidationError(fmt.Sprintf("invalid filter %q: expected column=value", f), nil)
		}
		q.Add(dashboard.FilterPrefix+col, val)
	}
	for _, p := range opts.params {
		id, val, ok := strings.Cut(p, "=")
		if !ok || id == "" {
			return dashboard.Request{}, apierrors.NewAppValidationError(fmt.Sprintf("invalid parameter %q: expected id=value", p), nil)
		}
		q.Add(dashboard.ParamPrefix+id, val)
	}
	return dashboard.RequestFromQuery(d, q), nil
}

func runView(cmd *cobra.Command, opts *options, name string, paths []string) error {
	s, err := newService(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	id, err := load(ctx, s, cmd.ErrOrStderr(), name, paths)
	if err != nil {
		return err
	}
	req, err := request(s, name, opts)
	if err != nil {
		return err
	}

	view, err := s.View(ctx, name, id, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), view, opts.pretty)
}

func runExport(cmd *cobra.Command, opts *options, name string, paths []string) error {
	format, err := exporter.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	s, err := newService(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	id, err := load(ctx, s, cmd.ErrOrStderr(), name, paths)
	if err != nil {
		return err
	}
	req, err := request(s, name, opts)
	if err != nil {
		return err
	}

	out, err := s.Export(ctx, name, id, req, format)
	if err != nil {
		return err
	}

	path := opts.outputPath
	if path == "" {
		path = out.FileName
	}
	if err := os.WriteFile(path, out.Data, 0644); err != nil {
		return apierrors.NewStorageError("failed to write output", err).WithContext("path", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", out.Rows, path)
	return nil
}

func runSchema(cmd *cobra.Command, opts *options, args []string) error {
	s, err := newService(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	for _, info := range s.Dashboards() {
		if len(args) == 1 && info.Name != args[0] {
			continue
		}
		fmt.Fprintf(w, "%s (%s)\n", info.Name, info.Title)
		for _, f := range info.Schema.Fields {
			req := "optional"
			if f.Required {
				req = "required"
			}
			fmt.Fprintf(w, "  %-32s %-8s %s\n", f.Name, f.Type, req)
		}
		if len(args) == 1 {
			return nil
		}
	}
	if len(args) == 1 {
		return apierrors.NewNotFoundError("dashboard "+args[0], dashboard.ErrUnknownDashboard)
	}
	return nil
}

// commandContext tags the command context with a trace id so every log line
// of one invocation correlates
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return infrastructure.EnsureTraceID(ctx)
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
