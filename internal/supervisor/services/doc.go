// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package services adapts ITDash components to suture.Service.
//
// Every wrapper blocks in Serve until its context is cancelled and returns
// ctx.Err() on a clean stop, so suture never restarts a service that shut
// down on purpose.
package services
