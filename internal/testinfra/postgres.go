// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage is the image used by StartPostgres.
	DefaultPostgresImage = "postgres:16-alpine"

	postgresPort     = "5432/tcp"
	postgresUser     = "itdash"
	postgresPassword = "itdash"
	postgresDB       = "itdash"
)

// Schema is the subset of the operational database the backend reads.
const Schema = `
CREATE TABLE pacs_card_owner (
	system_id  BIGINT PRIMARY KEY,
	firstname  TEXT,
	secondname TEXT,
	lastname   TEXT
);

CREATE TABLE pacs_access_point (
	system_id BIGINT PRIMARY KEY,
	name      TEXT
);

CREATE TABLE pacs_event (
	id       BIGSERIAL PRIMARY KEY,
	created  TIMESTAMP NOT NULL,
	code     INTEGER NOT NULL,
	owner_id BIGINT,
	ap_id    BIGINT
);

CREATE TABLE department (
	id        BIGINT PRIMARY KEY,
	parent_id BIGINT
);

CREATE TABLE employee (
	user_principal_name TEXT PRIMARY KEY,
	display_name        TEXT NOT NULL,
	department_id       BIGINT REFERENCES department (id),
	call_number         INTEGER
);

CREATE TABLE employee_card (
	employee_upn TEXT NOT NULL REFERENCES employee (user_principal_name),
	card_id      BIGINT NOT NULL
);

CREATE TABLE avaya_cdr (
	id             BIGSERIAL PRIMARY KEY,
	date           TIMESTAMPTZ NOT NULL,
	duration       BIGINT,
	calling_number TEXT,
	called_number  TEXT,
	call_code      TEXT
);

CREATE TABLE cisco_vpn_event (
	id      BIGSERIAL PRIMARY KEY,
	created TIMESTAMPTZ,
	host    TEXT,
	event   TEXT
);
`

// PostgresContainer is a running Postgres with Schema applied.
type PostgresContainer struct {
	testcontainers.Container
	DSN string
}

// StartPostgres starts a Postgres container for the lifetime of t.
func StartPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	container := startContainer(t, testcontainers.ContainerRequest{
		Image:        DefaultPostgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
			"TZ":                "UTC",
		},
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(Schema),
			ContainerFilePath: "/docker-entrypoint-initdb.d/00-schema.sql",
			FileMode:          0o644,
		}},
		// The server restarts once after running init scripts.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithStartupTimeout(90 * time.Second),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			postgresUser, postgresPassword, host, port.Port(), postgresDB),
	}
}
