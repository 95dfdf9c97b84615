package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"gudangpos/internal/config"
)

type migration struct {
	version string
	up      string
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set to run migrations")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migrations applied")
}

func runMigrations(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	lastVersion, err := getLastMigration(ctx, db)
	if err != nil {
		return fmt.Errorf("read last migration: %w", err)
	}
	if lastVersion != "" {
		log.Printf("last applied migration: %s", lastVersion)
	}

	for _, m := range migrations {
		if m.version <= lastVersion {
			continue
		}

		log.Printf("applying %s", m.version)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO migrations (version, executed_at) VALUES ($1, $2)`,
			m.version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.version, err)
		}
	}

	return nil
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(100) PRIMARY KEY,
			executed_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func getLastMigration(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	err := db.QueryRowContext(ctx,
		`SELECT version FROM migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return version, nil
}

var migrations = []migration{
	{
		version: "001_master_inventory",
		up: `
			CREATE TABLE IF NOT EXISTS master_inventory (
				id VARCHAR(64) PRIMARY KEY,
				product_name VARCHAR(255) NOT NULL,
				buying_price_cents BIGINT NOT NULL,
				total_quantity INTEGER NOT NULL DEFAULT 0,
				min_stock_level INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				CONSTRAINT master_quantity_non_negative CHECK (total_quantity >= 0)
			);
		`,
	},
	{
		version: "002_manager_inventory",
		up: `
			CREATE TABLE IF NOT EXISTS manager_inventory (
				id VARCHAR(64) PRIMARY KEY,
				manager_id VARCHAR(64) NOT NULL,
				master_item_id VARCHAR(64) NOT NULL REFERENCES master_inventory(id),
				selling_price_cents BIGINT NOT NULL,
				current_quantity INTEGER NOT NULL DEFAULT 0,
				min_stock_level INTEGER NOT NULL DEFAULT 0,
				last_updated TIMESTAMPTZ NOT NULL,
				UNIQUE(manager_id, master_item_id),
				CONSTRAINT manager_quantity_non_negative CHECK (current_quantity >= 0)
			);

			CREATE INDEX IF NOT EXISTS idx_manager_inventory_manager_id ON manager_inventory(manager_id);
		`,
	},
	{
		version: "003_bills",
		up: `
			CREATE TABLE IF NOT EXISTS bills (
				id VARCHAR(64) PRIMARY KEY,
				bill_number VARCHAR(64) UNIQUE NOT NULL,
				cashier_id VARCHAR(64) NOT NULL,
				manager_id VARCHAR(64) NOT NULL,
				total_amount_cents BIGINT NOT NULL,
				bill_date TIMESTAMPTZ NOT NULL,
				status VARCHAR(20) NOT NULL
			);

			CREATE TABLE IF NOT EXISTS bill_items (
				id BIGSERIAL PRIMARY KEY,
				bill_id VARCHAR(64) NOT NULL REFERENCES bills(id),
				manager_inventory_id VARCHAR(64) NOT NULL REFERENCES manager_inventory(id),
				quantity INTEGER NOT NULL,
				unit_price_cents BIGINT NOT NULL,
				subtotal_cents BIGINT NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_bills_manager_id ON bills(manager_id);
			CREATE INDEX IF NOT EXISTS idx_bills_bill_date ON bills(bill_date);
			CREATE INDEX IF NOT EXISTS idx_bill_items_bill_id ON bill_items(bill_id);
		`,
	},
	{
		version: "004_employees",
		up: `
			CREATE TABLE IF NOT EXISTS employees (
				id VARCHAR(64) PRIMARY KEY,
				manager_id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL,
				role VARCHAR(50) NOT NULL,
				base_salary_cents BIGINT NOT NULL,
				joined_at TIMESTAMPTZ NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				deactivated_at TIMESTAMPTZ
			);

			CREATE INDEX IF NOT EXISTS idx_employees_manager_id ON employees(manager_id);
		`,
	},
	{
		version: "005_expenses",
		up: `
			CREATE TABLE IF NOT EXISTS expenses (
				id VARCHAR(64) PRIMARY KEY,
				manager_id VARCHAR(64) NOT NULL,
				description TEXT NOT NULL,
				amount_cents BIGINT NOT NULL,
				category VARCHAR(50) NOT NULL,
				expense_date TIMESTAMPTZ NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_expenses_manager_id ON expenses(manager_id);
			CREATE INDEX IF NOT EXISTS idx_expenses_expense_date ON expenses(expense_date);
		`,
	},
	{
		version: "006_salary_payments",
		up: `
			CREATE TABLE IF NOT EXISTS salary_payments (
				id VARCHAR(64) PRIMARY KEY,
				user_id VARCHAR(64) NOT NULL REFERENCES employees(id),
				amount_cents BIGINT NOT NULL,
				payment_month VARCHAR(7) NOT NULL,
				payment_date TIMESTAMPTZ NOT NULL,
				status VARCHAR(20) NOT NULL,
				notes TEXT,
				created_by VARCHAR(64) NOT NULL,
				UNIQUE(user_id, payment_month)
			);

			CREATE INDEX IF NOT EXISTS idx_salary_payments_month ON salary_payments(payment_month);
		`,
	},
	{
		version: "007_notifications_audit",
		up: `
			CREATE TABLE IF NOT EXISTS notifications (
				id VARCHAR(64) PRIMARY KEY,
				recipient_id VARCHAR(64) NOT NULL,
				kind VARCHAR(50) NOT NULL,
				message TEXT NOT NULL,
				read BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id);

			CREATE TABLE IF NOT EXISTS audit_logs (
				id VARCHAR(64) PRIMARY KEY,
				actor_username VARCHAR(64) NOT NULL,
				actor_role VARCHAR(20) NOT NULL,
				action VARCHAR(64) NOT NULL,
				entity_type VARCHAR(64) NOT NULL,
				entity_id VARCHAR(64) NOT NULL,
				detail TEXT,
				created_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at);
		`,
	},
	{
		version: "008_app_users",
		up: `
			CREATE TABLE IF NOT EXISTS app_users (
				username VARCHAR(64) PRIMARY KEY,
				password VARCHAR(255) NOT NULL,
				role VARCHAR(20) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			);
		`,
	},
}
