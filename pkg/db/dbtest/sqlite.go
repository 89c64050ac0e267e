// Package dbtest opens throwaway SQLite databases carrying the service schema for repository tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type options struct {
	orderMetadata bool
}

// Option tweaks the generated schema.
type Option func(*options)

// WithoutOrderMetadata creates the orders table as it existed before the metadata columns were added.
func WithoutOrderMetadata() Option {
	return func(o *options) {
		o.orderMetadata = false
	}
}

const catalogDDL = `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT,
  sell_per_unit TEXT,
  sell_per_case TEXT,
  cost_per_unit TEXT,
  cost_per_case TEXT,
  units_per_case INTEGER,
  allow_unit INTEGER NOT NULL DEFAULT 1,
  allow_case INTEGER NOT NULL DEFAULT 0,
  stock_pieces INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);
CREATE TABLE IF NOT EXISTS buyer_price_overrides (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  price_per_unit TEXT,
  price_per_case TEXT,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_buyer_price_overrides_scope ON buyer_price_overrides (tenant_id, buyer_id, product_id);
CREATE TABLE IF NOT EXISTS bulk_price_overrides (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  price_per_unit TEXT,
  price_per_case TEXT,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_bulk_price_overrides_scope ON bulk_price_overrides (tenant_id, product_id);
CREATE TABLE IF NOT EXISTS buyer_links (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_buyer_links_scope ON buyer_links (tenant_id, buyer_id);`

const ordersWithMetadataDDL = `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_by TEXT,
  created_by_role TEXT,
  source TEXT,
  buyer_note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`

const ordersLegacyDDL = `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`

const linesAndInvoicesDDL = `
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  product_id TEXT,
  product_name TEXT NOT NULL,
  category TEXT,
  granularity TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  units_per_case_snapshot INTEGER,
  unit_price_snapshot TEXT,
  case_price_snapshot TEXT,
  selling_price_at_time TEXT NOT NULL,
  cost_price_at_time TEXT,
  unit_cost_snapshot TEXT,
  case_cost_snapshot TEXT,
  line_total TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  order_id TEXT,
  invoice_number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'finalized',
  issued_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS invoice_lines (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  product_id TEXT,
  description TEXT NOT NULL,
  category TEXT,
  sold_as TEXT NOT NULL DEFAULT 'unit',
  quantity TEXT NOT NULL,
  units_per_case INTEGER,
  total_pieces INTEGER,
  unit_price TEXT,
  case_price TEXT,
  line_total TEXT,
  unit_cost TEXT,
  case_cost TEXT
);`

// OpenSQLite returns an isolated in-memory database with the catalog, order and invoice tables.
func OpenSQLite(t testing.TB, opts ...Option) *gorm.DB {
	t.Helper()

	cfg := options{orderMetadata: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	orders := ordersWithMetadataDDL
	if !cfg.orderMetadata {
		orders = ordersLegacyDDL
	}
	for _, ddl := range []string{catalogDDL, orders, linesAndInvoicesDDL} {
		require.NoError(t, conn.Exec(ddl).Error)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
