// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/portal/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })
	})

	It("starts at version zero", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(Equal(uint(2)))
		Expect(st.Pending).To(BeEmpty())
		Expect(st.Applied).To(Equal([]uint{1, 2}))
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("creates tables the repositories expect", func(ctx SpecContext) {
		pool, err := store.Connect(ctx, connStr, store.DefaultRetryPolicy, nil)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		var n int
		err = pool.QueryRow(ctx, `
			SELECT count(*) FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name IN ('users', 'sessions')
		`).Scan(&n)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("steps down and up again", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("rolls everything back and forces a version", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Force(1)).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Force(2)).To(Succeed())
	})
})

var _ = Describe("Connect", func() {
	It("returns a pool that answers pings", func() {
		ctx := context.Background()
		pool, err := store.Connect(ctx, connStr, store.DefaultRetryPolicy, nil)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()
		Expect(pool.Ping(ctx)).To(Succeed())
	})
})
