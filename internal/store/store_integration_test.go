// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/holoauth/internal/store"
)

var _ = Describe("Database lifecycle", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("holoauth_test"),
			postgres.WithUsername("holoauth"),
			postgres.WithPassword("holoauth"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Connect", func() {
		It("returns a pool that answers queries", func() {
			pool, err := store.Connect(ctx, connStr, 3)
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			var one int
			Expect(pool.QueryRow(ctx, "SELECT 1").Scan(&one)).To(Succeed())
			Expect(one).To(Equal(1))
		})
	})

	Describe("Migrator", func() {
		var migrator *store.Migrator

		BeforeEach(func() {
			var err error
			migrator, err = store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(migrator.Close()).To(Succeed())
		})

		It("starts at version zero", func() {
			version, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
			Expect(dirty).To(BeFalse())
		})

		It("applies every migration and creates the users table", func() {
			Expect(migrator.Up()).To(Succeed())

			pending, err := migrator.PendingMigrations()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())

			pool, err := pgxpool.New(ctx, connStr)
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			var exists bool
			err = pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'users')`).
				Scan(&exists)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		It("steps back and forward", func() {
			latest, _, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())

			Expect(migrator.Steps(-1)).To(Succeed())
			version, _, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(latest - 1))

			Expect(migrator.Steps(1)).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(latest))
		})

		It("rolls everything back", func() {
			Expect(migrator.Down()).To(Succeed())
			version, _, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
		})
	})
})
