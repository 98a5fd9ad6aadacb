// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Command baculum-report builds HTML reports of Bacula backup jobs from the
// Baculum REST API and optionally mails them.
//
// # Commands
//
//	report   fetch jobs for a period, save the HTML report, optionally mail it
//	check    load configuration and test the Baculum API connection
//	clients  list the Bacula clients known to the director
//	job      show the details of one job by id
//	list     list saved reports, newest first
//	serve    run the cron scheduler and the HTTP API under a supervisor
//	version  print the version
//
// Running without a command is the same as "report".
//
// # Configuration
//
// Settings come from built-in defaults, an optional YAML file (--config or
// CONFIG_PATH) and environment variables, in increasing priority:
//
//	export BACULUM_API_HOST=director.example.com
//	export BACULUM_API_USERNAME=admin
//	export BACULUM_API_PASSWORD=secret
//	export SMTP_SERVER=smtp.example.com
//	export SMTP_USERNAME=reports@example.com
//	export SMTP_PASSWORD=app-password
//	export MAIL_TO=ops@example.com,backup@example.com
//	baculum-report report --mode production --send-mail
//
// # Exit Codes
//
// 0 on success, 1 when any stage fails or the run is interrupted, 2 on
// invalid command-line usage.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout, stderr io.Writer) int
}

var commands = []command{
	{name: "report", summary: "Generate a backup report and optionally mail it", run: runReport},
	{name: "check", summary: "Check configuration and the Baculum API connection", run: runCheck},
	{name: "clients", summary: "List Bacula clients", run: runClients},
	{name: "job", summary: "Show one job by id", run: runJob},
	{name: "list", summary: "List saved reports", run: runList},
	{name: "serve", summary: "Run the report scheduler and HTTP API", run: runServe},
	{name: "version", summary: "Print the version", run: runVersion},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches args to a command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		if len(args) > 0 && (args[0] == "-h" || args[0] == "-help" || args[0] == "--help") {
			usage(stdout)
			return exitOK
		}
		return runReport(ctx, args, stdout, stderr)
	}

	name, rest := args[0], args[1:]
	if name == "help" {
		usage(stdout)
		return exitOK
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, rest, stdout, stderr)
		}
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", name)
	usage(stderr)
	return exitUsage
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: baculum-report <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "baculum-report <command> -h" for command flags.`)
}

func runVersion(_ context.Context, _ []string, stdout, _ io.Writer) int {
	fmt.Fprintf(stdout, "baculum-report %s\n", version)
	return exitOK
}
