// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

/*
Package supervisor runs the long-lived parts of serve mode under suture v4.

The tree has two layers so that a failing HTTP listener does not stop
scheduled reports, and a scheduler restart does not drop API clients:

	RootSupervisor ("baculum-report")
	├── SchedulerSupervisor ("scheduler-layer")
	│   └── SchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog, which writes to the zerolog global logger via
logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddSchedulerService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
