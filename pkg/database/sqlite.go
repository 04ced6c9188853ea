package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS locations (
  id         TEXT PRIMARY KEY,
  code       TEXT NOT NULL UNIQUE,
  name       TEXT NOT NULL DEFAULT '',
  zone       TEXT NOT NULL DEFAULT '',
  capacity   INTEGER NOT NULL DEFAULT 1 CHECK (capacity >= 1),
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  updated_by TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
  id                         TEXT PRIMARY KEY,
  sku                        TEXT NOT NULL UNIQUE,
  name                       TEXT NOT NULL,
  category                   TEXT NOT NULL DEFAULT '',
  status                     TEXT NOT NULL,
  condition                  TEXT NOT NULL DEFAULT '',
  seller_id                  TEXT NOT NULL DEFAULT '',
  price                      TEXT NOT NULL DEFAULT '0',
  current_location_id        TEXT REFERENCES locations(id),
  meta_inspection_completed  INTEGER NOT NULL DEFAULT 0,
  meta_photography_completed INTEGER NOT NULL DEFAULT 0,
  meta_delivery_plan_id      TEXT,
  meta_notes                 TEXT NOT NULL DEFAULT '',
  version                    INTEGER NOT NULL DEFAULT 1,
  created_at                 DATETIME NOT NULL,
  updated_at                 DATETIME NOT NULL,
  created_by                 TEXT NOT NULL DEFAULT '',
  updated_by                 TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
CREATE INDEX IF NOT EXISTS idx_products_location ON products(current_location_id);
CREATE INDEX IF NOT EXISTS idx_products_plan ON products(meta_delivery_plan_id);

CREATE TABLE IF NOT EXISTS product_movements (
  id               TEXT PRIMARY KEY,
  product_id       TEXT NOT NULL REFERENCES products(id),
  from_location_id TEXT,
  to_location_id   TEXT NOT NULL,
  moved_by         TEXT NOT NULL DEFAULT '',
  notes            TEXT NOT NULL DEFAULT '',
  created_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movements_product ON product_movements(product_id);

CREATE TABLE IF NOT EXISTS activity_records (
  id          TEXT PRIMARY KEY,
  type        TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  actor_id    TEXT,
  product_id  TEXT,
  order_id    TEXT,
  metadata    TEXT NOT NULL DEFAULT '{}',
  created_at  DATETIME NOT NULL,
  CHECK (product_id IS NOT NULL OR order_id IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_activity_product ON activity_records(product_id);
CREATE INDEX IF NOT EXISTS idx_activity_order ON activity_records(order_id);

CREATE TABLE IF NOT EXISTS orders (
  id            TEXT PRIMARY KEY,
  order_number  TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL DEFAULT '',
  status        TEXT NOT NULL,
  created_at    DATETIME NOT NULL,
  updated_at    DATETIME NOT NULL,
  created_by    TEXT NOT NULL DEFAULT '',
  updated_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS order_items (
  id         TEXT PRIMARY KEY,
  order_id   TEXT NOT NULL REFERENCES orders(id),
  product_id TEXT NOT NULL,
  quantity   INTEGER NOT NULL DEFAULT 1,
  price      TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);

CREATE TABLE IF NOT EXISTS picking_tasks (
  id            TEXT PRIMARY KEY,
  order_id      TEXT,
  customer_name TEXT NOT NULL DEFAULT '',
  status        TEXT NOT NULL,
  priority      TEXT NOT NULL,
  assignee      TEXT NOT NULL DEFAULT '',
  due_date      DATETIME NOT NULL,
  created_at    DATETIME NOT NULL,
  updated_at    DATETIME NOT NULL,
  created_by    TEXT NOT NULL DEFAULT '',
  updated_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS picking_items (
  id              TEXT PRIMARY KEY,
  task_id         TEXT NOT NULL REFERENCES picking_tasks(id),
  product_id      TEXT NOT NULL,
  product_name    TEXT NOT NULL DEFAULT '',
  sku             TEXT NOT NULL DEFAULT '',
  location_code   TEXT NOT NULL DEFAULT '',
  quantity        INTEGER NOT NULL DEFAULT 1,
  picked_quantity INTEGER NOT NULL DEFAULT 0,
  status          TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS idx_picking_items_product ON picking_items(product_id);

CREATE TABLE IF NOT EXISTS delivery_plans (
  id          TEXT PRIMARY KEY,
  plan_number TEXT NOT NULL UNIQUE,
  seller_id   TEXT NOT NULL,
  status      TEXT NOT NULL,
  notes       TEXT NOT NULL DEFAULT '',
  created_at  DATETIME NOT NULL,
  updated_at  DATETIME NOT NULL,
  created_by  TEXT NOT NULL DEFAULT '',
  updated_by  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS delivery_plan_items (
  id         TEXT PRIMARY KEY,
  plan_id    TEXT NOT NULL REFERENCES delivery_plans(id),
  name       TEXT NOT NULL DEFAULT '',
  quantity   INTEGER NOT NULL DEFAULT 1,
  product_id TEXT
);
`

// ConnectSQLite opens the single-file backend and bootstraps its schema.
// Pass ":memory:" for an ephemeral database.
func ConnectSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite serialises writers anyway and :memory: is per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}
