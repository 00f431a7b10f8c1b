// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package services

import (
	"context"

	"github.com/tomtom215/itdash/internal/reconnect"
)

// Runner serves a connected adapter and reconnects after failures.
// *reconnect.Policy implements it.
type Runner interface {
	Run(ctx context.Context, name string, c reconnect.Conn) error
}

// AdapterService runs one upstream adapter whose initial connection was
// already made with reconnect.Policy.Connect.
//
//	if err := policy.Connect(ctx, broker.AdapterName, consumer); err != nil {
//	    return err // fatal at startup
//	}
//	tree.AddMessagingService(services.NewAdapterService(broker.AdapterName, policy, consumer))
type AdapterService struct {
	name   string
	runner Runner
	conn   reconnect.Conn
}

// NewAdapterService wraps conn.
func NewAdapterService(name string, runner Runner, conn reconnect.Conn) *AdapterService {
	return &AdapterService{name: name, runner: runner, conn: conn}
}

// Serve implements suture.Service. It returns only when ctx ends.
func (a *AdapterService) Serve(ctx context.Context) error {
	err := a.runner.Run(ctx, a.name, a.conn)
	if cerr := a.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *AdapterService) String() string {
	return a.name
}
