// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package services

import "context"

// FuncService runs a blocking function as a named service.
type FuncService struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncService wraps fn, which must return when ctx ends.
func NewFuncService(name string, fn func(ctx context.Context) error) *FuncService {
	return &FuncService{name: name, fn: fn}
}

// Serve implements suture.Service.
func (f *FuncService) Serve(ctx context.Context) error {
	return f.fn(ctx)
}

func (f *FuncService) String() string {
	return f.name
}
