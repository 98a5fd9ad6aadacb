// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

// Package services adapts serve-mode components to suture.Service.
//
// Each wrapper turns a component's own lifecycle (ListenAndServe/Shutdown,
// Start/Stop) into a Serve(ctx) that blocks until ctx is canceled, and
// implements fmt.Stringer so supervisor logs name the service.
package services
