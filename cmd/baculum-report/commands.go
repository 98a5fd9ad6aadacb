// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/tomtom215/baculum-report/internal/api"
	"github.com/tomtom215/baculum-report/internal/config"
	"github.com/tomtom215/baculum-report/internal/logging"
	"github.com/tomtom215/baculum-report/internal/metrics"
	"github.com/tomtom215/baculum-report/internal/models"
	"github.com/tomtom215/baculum-report/internal/period"
	"github.com/tomtom215/baculum-report/internal/pipeline"
	"github.com/tomtom215/baculum-report/internal/report"
	"github.com/tomtom215/baculum-report/internal/schedule"
	"github.com/tomtom215/baculum-report/internal/supervisor"
	"github.com/tomtom215/baculum-report/internal/supervisor/services"
)

// commonFlags are accepted by every command that loads configuration.
type commonFlags struct {
	configPath string
	verbose    bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "path to a YAML config file (overrides CONFIG_PATH)")
	fs.BoolVar(&c.verbose, "verbose", false, "log at debug level")
	return fs, c
}

// parseFlags returns the exit code to use when parsing stops the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return exitUsage, false
	}
	return 0, true
}

// parseFlagsWithArg parses flags around exactly one positional argument,
// which may come before or after the flags.
func parseFlagsWithArg(fs *flag.FlagSet, args []string, name string) (string, int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", exitOK, false
		}
		return "", exitUsage, false
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(fs.Output(), "missing %s\n", name)
		return "", exitUsage, false
	}
	arg := fs.Arg(0)
	code, ok := parseFlags(fs, fs.Args()[1:])
	return arg, code, ok
}

// setup loads configuration and initializes logging and build metrics.
func setup(c *commonFlags, stderr io.Writer) (*config.Config, bool) {
	cfg, err := config.LoadWithKoanf(c.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return nil, false
	}
	logging.Init(cfg.LogConfig(c.verbose))
	metrics.SetAppInfo(version)
	return cfg, true
}

func runReport(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, common := newFlagSet("report", stderr)
	mode := fs.String("mode", string(period.ModeTest), "reporting period: test (last 7 days) or production (yesterday 22:00 to now)")
	output := fs.String("output", "", "report file name or path relative to REPORT_DIR (default mail_YYYYMMDDHHMMSS.html)")
	sendMail := fs.Bool("send-mail", false, "mail the report to MAIL_TO")
	start := fs.String("start", "", `custom period start "YYYY-MM-DD HH:MM:SS" (requires --end)`)
	end := fs.String("end", "", `custom period end "YYYY-MM-DD HH:MM:SS" (requires --start)`)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	opts := pipeline.Options{Output: *output, SendMail: *sendMail}
	m, err := period.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(stderr, "--mode: %v\n", err)
		return exitUsage
	}
	opts.Mode = m

	custom, err := customPeriod(*start, *end)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	opts.Period = custom

	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize report pipeline")
		return exitFailure
	}

	res, err := p.Run(ctx, opts)
	writeTextfile(cfg)
	if err != nil {
		if ctx.Err() != nil {
			logging.Warn().Msg("Report run interrupted")
		}
		fmt.Fprintf(stderr, "report failed: %v\n", err)
		return exitFailure
	}

	printRunSummary(stdout, res)
	return exitOK
}

// customPeriod parses --start/--end. Both or neither must be given.
func customPeriod(start, end string) (*period.Period, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("--start and --end must be used together")
	}
	s, err := period.ParseAPITime(start)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	e, err := period.ParseAPITime(end)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}
	p, err := period.Custom(s, e)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func writeTextfile(cfg *config.Config) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
}

func printRunSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Report:  %s\n", res.Report.Path)
	fmt.Fprintf(w, "Period:  %s\n", res.Period)
	s := res.Report.Stats
	fmt.Fprintf(w, "Jobs:    %d total, %d succeeded, %d failed, %d running, %d canceled\n",
		s.TotalJobs, s.SuccessCount, s.FailedCount, s.RunningCount, s.CanceledCount)
	if res.Fetch != nil && res.Fetch.Skipped > 0 {
		fmt.Fprintf(w, "Skipped: %d unparsable records\n", res.Fetch.Skipped)
	}
	switch {
	case res.Receipt != nil:
		fmt.Fprintf(w, "Mail:    sent (%s)\n", res.Receipt.MessageID)
	case res.MailErr != nil:
		fmt.Fprintf(w, "Mail:    failed: %v\n", res.MailErr)
	case res.MailSkipped:
		fmt.Fprintln(w, "Mail:    skipped, mail settings incomplete")
	}
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, common := newFlagSet("check", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	fmt.Fprintf(stdout, "Configuration: ok\n")
	if cfg.Mail.Complete() {
		fmt.Fprintf(stdout, "Mail:          %s:%d -> %d recipient(s)\n", cfg.Mail.Server, cfg.Mail.Port, len(cfg.Mail.To))
	} else {
		fmt.Fprintln(stdout, "Mail:          not configured")
	}

	client := pipeline.NewAPI(cfg)
	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(stdout, "Baculum API:   %s unreachable: %v\n", cfg.API.Address(), err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "Baculum API:   %s ok\n", cfg.API.Address())
	return exitOK
}

func runClients(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, common := newFlagSet("clients", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	records, err := pipeline.NewAPI(cfg).FetchClients(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "fetch clients: %v\n", err)
		return exitFailure
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION")
	for _, r := range records {
		fmt.Fprintf(tw, "%v\t%v\t%v\n", field(r, "clientid"), field(r, "name"), field(r, "uname"))
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	return exitOK
}

func runJob(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, common := newFlagSet("job", stderr)
	arg, code, ok := parseFlagsWithArg(fs, args, "job id")
	if !ok {
		return code
	}
	jobID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || jobID <= 0 {
		fmt.Fprintf(stderr, "invalid job id %q\n", arg)
		return exitUsage
	}
	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	record, err := pipeline.NewAPI(cfg).FetchJob(ctx, jobID)
	if err != nil {
		fmt.Fprintf(stderr, "fetch job %d: %v\n", jobID, err)
		return exitFailure
	}
	if len(record) == 0 {
		fmt.Fprintf(stderr, "job %d not found\n", jobID)
		return exitFailure
	}
	job, err := models.ParseJob(record)
	if err != nil {
		fmt.Fprintf(stderr, "job %d: %v\n", jobID, err)
		return exitFailure
	}

	end := "running"
	if job.EndTime != nil {
		end = period.FormatDisplay(*job.EndTime)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Job:\t%d %s\n", job.JobID, job.JobName)
	fmt.Fprintf(tw, "Client:\t%s\n", job.ClientName)
	fmt.Fprintf(tw, "Level:\t%s\n", job.LevelDisplay())
	fmt.Fprintf(tw, "Status:\t%s (%s)\n", job.StatusDisplay(), job.Status)
	fmt.Fprintf(tw, "Started:\t%s\n", period.FormatDisplay(job.StartTime))
	fmt.Fprintf(tw, "Ended:\t%s\n", end)
	fmt.Fprintf(tw, "Duration:\t%s\n", job.DurationDisplay())
	fmt.Fprintf(tw, "Size:\t%s\n", job.SizeDisplay())
	fmt.Fprintf(tw, "Files:\t%d\n", job.JobFiles)
	fmt.Fprintf(tw, "Errors:\t%d\n", job.JobErrors)
	if job.PoolName != "" {
		fmt.Fprintf(tw, "Pool:\t%s\n", job.PoolName)
	}
	if job.FilesetName != "" {
		fmt.Fprintf(tw, "Fileset:\t%s\n", job.FilesetName)
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	return exitOK
}

func field(r map[string]any, key string) any {
	if v, ok := r[key]; ok && v != nil {
		return v
	}
	return "-"
}

func runList(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs, common := newFlagSet("list", stderr)
	limit := fs.Int("limit", api.DefaultListLimit, "maximum reports to show, 0 for all")
	latest := fs.Bool("latest", false, "print only the path of the newest report")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *limit < 0 {
		fmt.Fprintln(stderr, "--limit must not be negative")
		return exitUsage
	}
	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	store := report.NewStore(cfg.Report.Dir)
	if *latest {
		e, err := store.Latest()
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, e.Path)
		return exitOK
	}

	entries, err := store.List(*limit)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.Size, period.FormatAPI(e.ModTime))
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	return exitOK
}

func runServe(ctx context.Context, args []string, _, stderr io.Writer) int {
	fs, common := newFlagSet("serve", stderr)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	cfg, ok := setup(common, stderr)
	if !ok {
		return exitFailure
	}
	defer logging.Close()

	p, err := pipeline.FromConfig(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize report pipeline")
		return exitFailure
	}

	sched, err := schedule.New(p, schedule.Config{
		Spec:     cfg.Schedule.Cron,
		Mode:     period.Mode(cfg.Schedule.Mode),
		SendMail: cfg.Schedule.SendMail,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create report scheduler")
		return exitFailure
	}

	router := api.NewRouter(api.Deps{
		Store:     report.NewStore(cfg.Report.Dir),
		Scheduler: sched,
		API:       p.API(),
		Version:   version,
		Middleware: &api.ChiMiddlewareConfig{
			RateLimitRequests: cfg.Server.RateLimit,
			RateLimitWindow:   time.Minute,
		},
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return exitFailure
	}
	tree.AddSchedulerService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("schedule", cfg.Schedule.Cron).
		Msg("Starting baculum-report server")

	err = tree.Serve(ctx)

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor stopped with error")
		return exitFailure
	}
	logging.Info().Msg("Server stopped")
	return exitOK
}
