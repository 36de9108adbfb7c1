package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-bot/config"
	"subscription-bot/internal/models"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DatabaseConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	// The access key, when set, overrides whatever password the URL carries.
	if cfg.Key != "" {
		poolConfig.ConnConfig.Password = cfg.Key
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.ConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnLifetime
	}
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// UpsertProfile makes sure a profile row exists. An existing name is kept.
func (db *PostgresDB) UpsertProfile(ctx context.Context, telegramID int64) error {
	query := `
        INSERT INTO profiles (tg_user_id)
        VALUES ($1)
        ON CONFLICT (tg_user_id) DO UPDATE
        SET updated_at = NOW()
    `

	if _, err := db.pool.Exec(ctx, query, telegramID); err != nil {
		return fmt.Errorf("failed to upsert profile %d: %w", telegramID, err)
	}
	return nil
}

func (db *PostgresDB) UpsertProfileName(ctx context.Context, telegramID int64, name string) error {
	query := `
        INSERT INTO profiles (tg_user_id, user_name)
        VALUES ($1, $2)
        ON CONFLICT (tg_user_id) DO UPDATE
        SET user_name = EXCLUDED.user_name, updated_at = NOW()
    `

	if _, err := db.pool.Exec(ctx, query, telegramID, name); err != nil {
		return fmt.Errorf("failed to upsert profile name %d: %w", telegramID, err)
	}
	return nil
}

func (db *PostgresDB) GetProfile(ctx context.Context, telegramID int64) (*models.Profile, error) {
	query := `
        SELECT tg_user_id, user_name, created_at, updated_at
        FROM profiles
        WHERE tg_user_id = $1
    `

	var profile models.Profile
	err := db.pool.QueryRow(ctx, query, telegramID).Scan(
		&profile.TelegramID, &profile.Name, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", telegramID, err)
	}

	return &profile, nil
}

// UpsertPayment writes the record keyed by payment id; a repeated delivery overwrites it.
func (db *PostgresDB) UpsertPayment(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (
            payment_id, customer_telegram_id, customer_telegram_username,
            payment_status, payment_amount, payment_currency, discount_percent, email
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (payment_id) DO UPDATE
        SET customer_telegram_id = EXCLUDED.customer_telegram_id,
            customer_telegram_username = EXCLUDED.customer_telegram_username,
            payment_status = EXCLUDED.payment_status,
            payment_amount = EXCLUDED.payment_amount,
            payment_currency = EXCLUDED.payment_currency,
            discount_percent = EXCLUDED.discount_percent,
            email = EXCLUDED.email,
            updated_at = NOW()
    `

	_, err := db.pool.Exec(ctx, query,
		payment.PaymentID, payment.TelegramID, payment.TelegramUsername,
		payment.Status, payment.Amount, payment.Currency, payment.DiscountPercent, payment.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment %s: %w", payment.PaymentID, err)
	}
	return nil
}

func (db *PostgresDB) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	query := `
        SELECT payment_id, customer_telegram_id, customer_telegram_username,
               payment_status, payment_amount, payment_currency, discount_percent, email,
               created_at, updated_at
        FROM payments
        WHERE payment_id = $1
    `

	var payment models.Payment
	err := db.pool.QueryRow(ctx, query, paymentID).Scan(
		&payment.PaymentID, &payment.TelegramID, &payment.TelegramUsername,
		&payment.Status, &payment.Amount, &payment.Currency, &payment.DiscountPercent, &payment.Email,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", paymentID, err)
	}

	return &payment, nil
}
