// Package dbtest opens isolated in-memory sqlite databases carrying the clip schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  plan_assigned INTEGER NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS clip_subscriptions (
  id TEXT PRIMARY KEY,
  package_name TEXT NOT NULL,
  package_description TEXT,
  price NUMERIC NOT NULL,
  total_clips INTEGER NOT NULL DEFAULT 0,
  validity_days TEXT NOT NULL,
  monthly_duration INTEGER NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_clip_subscriptions_package_name ON clip_subscriptions (LOWER(package_name)) WHERE is_deleted = 0;`,
	`CREATE TABLE IF NOT EXISTS business_clips (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  subscription_id TEXT,
  package_name TEXT,
  package_description TEXT,
  package_total_clips INTEGER NOT NULL DEFAULT 0,
  package_price NUMERIC,
  package_validity_days TEXT,
  package_monthly_duration INTEGER NOT NULL DEFAULT 0,
  remaining_clips INTEGER NOT NULL DEFAULT 0,
  month_history TEXT,
  purchased_at DATETIME,
  expiry_date DATETIME,
  status TEXT NOT NULL DEFAULT 'active',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_business_clips_active_business ON business_clips (business_id) WHERE status = 'active';`,
	`CREATE TABLE IF NOT EXISTS clip_refills (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  clip INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  expiry_date DATETIME NOT NULL,
  purchased_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS clip_renewals (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  subscription_id TEXT NOT NULL,
  validity_days TEXT NOT NULL,
  monthly_duration INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS clip_usage_histories (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  project_id TEXT,
  clips_used INTEGER NOT NULL,
  usage_type TEXT NOT NULL,
  description TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  title TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  project_id TEXT NOT NULL,
  message TEXT,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_offers_business_project ON offers (business_id, project_id);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns a fresh database for the calling test. Every call gets its own
// named in-memory database so tests never observe each other's rows.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a single connection keeps sqlite from reporting table locks between a tx and its readers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// TxRunner adapts a bare gorm connection to the WithTx surface of db.Client.
type TxRunner struct {
	DB *gorm.DB
}

func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
