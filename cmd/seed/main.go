// Command seed loads a small set of sample customers and users into the
// database so a fresh deployment can be exercised immediately. It is safe
// to run more than once.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"loan-engine/internal/config"
	"loan-engine/internal/infrastructure/database/postgres"
	"loan-engine/internal/infrastructure/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type sampleCustomer struct {
	name        string
	surname     string
	creditLimit string
}

type sampleUser struct {
	username string
	password string
	role     string
	// customerName links the user to a seeded customer. Empty for admins.
	customerName string
}

var sampleCustomers = []sampleCustomer{
	{name: "John", surname: "Doe", creditLimit: "100000.00"},
	{name: "Michael", surname: "Johnson", creditLimit: "500000.00"},
}

var sampleUsers = []sampleUser{
	{username: "admin", password: "password123", role: "ADMIN"},
	{username: "customer1", password: "password123", role: "CUSTOMER", customerName: "Michael"},
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seedCustomers(ctx, pool, logger); err != nil {
		logger.Error("Seeding customers failed", "error", err)
		os.Exit(1)
	}
	if err := seedUsers(ctx, pool, logger); err != nil {
		logger.Error("Seeding users failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Sample data initialized.")
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	const insertSQL = `
        INSERT INTO customers (name, surname, credit_limit, used_credit_limit, create_date, updated_at)
        SELECT $1, $2, $3, 0, NOW(), NOW()
        WHERE NOT EXISTS (SELECT 1 FROM customers WHERE name = $1 AND surname = $2)`

	for _, c := range sampleCustomers {
		tag, err := pool.Exec(ctx, insertSQL, c.name, c.surname, c.creditLimit)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			logger.Info("Seeded customer", "name", c.name, "surname", c.surname, "creditLimit", c.creditLimit)
		} else {
			logger.Info("Customer already present, skipping", "name", c.name, "surname", c.surname)
		}
	}
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	const insertSQL = `
        INSERT INTO users (username, password_hash, role, customer_id, created_at)
        VALUES ($1, $2, $3, (SELECT id FROM customers WHERE name = $4 ORDER BY id LIMIT 1), NOW())
        ON CONFLICT (username) DO NOTHING`

	for _, u := range sampleUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		var customerName interface{}
		if u.customerName != "" {
			customerName = u.customerName
		}

		tag, err := pool.Exec(ctx, insertSQL, u.username, string(hash), u.role, customerName)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			logger.Info("Seeded user", "username", u.username, "role", u.role)
		} else {
			logger.Info("User already present, skipping", "username", u.username)
		}
	}
	return nil
}
