// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/itdash/internal/metrics"
)

// Employee is a request-initiator candidate.
type Employee struct {
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
	DepartmentID      *int64 `json:"departmentId"`
	PacsCardID        int64  `json:"pacsCardId"`
}

// FilteredEmployees returns employees with a PACS card whose display name
// starts with prefix, case-insensitively, in descending name order.
func (s *Store) FilteredEmployees(ctx context.Context, prefix string) ([]Employee, error) {
	return collect(ctx, s, "filtered_employees", `
		SELECT e.user_principal_name, e.display_name, e.department_id, c.card_id
		FROM employee e
		JOIN employee_card c ON e.user_principal_name = c.employee_upn
		WHERE e.display_name ILIKE $1
		ORDER BY e.display_name DESC`, pgx.RowToStructByPos[Employee], likePrefix(prefix))
}

type departmentRow struct {
	ID       int64
	ParentID *int64
}

// DepartmentStructure returns the parent of upn's department followed by
// every department under that parent, without duplicates. An unknown upn or
// a root department yields an empty list.
func (s *Store) DepartmentStructure(ctx context.Context, upn string) ([]int64, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.parent_id
		FROM department d
		WHERE d.parent_id = (
			SELECT dp.parent_id
			FROM department dp
			JOIN employee e ON dp.id = e.department_id
			WHERE e.user_principal_name = $1
			LIMIT 1
		)
		ORDER BY d.id`, upn)
	if err != nil {
		metrics.RecordDBQuery("department_structure", time.Since(start), err)
		return nil, fmt.Errorf("department_structure: %w", err)
	}

	siblings, err := pgx.CollectRows(rows, pgx.RowToStructByPos[departmentRow])
	metrics.RecordDBQuery("department_structure", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("department_structure: %w", err)
	}
	return departmentStructure(siblings), nil
}

func departmentStructure(siblings []departmentRow) []int64 {
	out := make([]int64, 0, len(siblings)+1)
	if len(siblings) == 0 {
		return out
	}

	seen := make(map[int64]struct{}, len(siblings)+1)
	if p := siblings[0].ParentID; p != nil {
		out = append(out, *p)
		seen[*p] = struct{}{}
	}
	for _, d := range siblings {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d.ID)
	}
	return out
}
