package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// PostgresStorage backs the local identity backend: accounts, profiles and
// the guest credentials remembered per device.
type PostgresStorage struct {
	db *pgxpool.Pool
}

func (store *PostgresStorage) initSchema(ctx context.Context) error {
	const initSchemaQuery = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY REFERENCES users(id),
		user_id TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		balance NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS guest_credentials (
		device_id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);`

	_, err := store.db.Exec(ctx, initSchemaQuery)
	return err
}

func NewPostgresStorage(ctx context.Context, databaseURI string) (*PostgresStorage, error) {
	db, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, err
	}

	storage := &PostgresStorage{db: db}

	if err := storage.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := storage.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

func (store *PostgresStorage) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

func (store *PostgresStorage) Close() {
	store.db.Close()
}

func (store *PostgresStorage) CreateUser(ctx context.Context, id, email, passwordHash string) error {
	const insertUserQuery = `INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`

	_, err := store.db.Exec(ctx, insertUserQuery, id, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.ErrLoginAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (store *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (model.User, string, error) {
	const query = `SELECT id, email, password_hash FROM users WHERE email = $1`

	var user model.User
	var hash string

	err := store.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, "", errs.ErrUserNotFound
		}
		return model.User{}, "", fmt.Errorf("get user by email: %w", err)
	}

	return user, hash, nil
}

func (store *PostgresStorage) GetUserByID(ctx context.Context, id string) (model.User, error) {
	const query = `SELECT id, email FROM users WHERE id = $1`

	var user model.User

	err := store.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

func (store *PostgresStorage) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	const query = `SELECT id, user_id, full_name, email, balance::text FROM profiles WHERE id = $1`

	p, err := scanProfile(store.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, errs.ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

// InsertProfile creates the profile unless one already exists for the
// account, in which case the stored row is returned unchanged.
func (store *PostgresStorage) InsertProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	const query = `
		INSERT INTO profiles (id, user_id, full_name, email, balance)
		VALUES ($1, $2, $3, $4, $5::numeric)
		ON CONFLICT (id) DO NOTHING`

	cmdTag, err := store.db.Exec(ctx, query,
		profile.ID, profile.UserID, profile.FullName, profile.Email, profile.Balance.String())
	if err != nil {
		return model.Profile{}, fmt.Errorf("insert profile: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return store.GetProfile(ctx, profile.ID)
	}

	return profile, nil
}

func (store *PostgresStorage) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	const query = `
		SELECT id, user_id, full_name, email, balance::text
		FROM profiles
		ORDER BY created_at DESC`

	rows, err := store.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var list []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return list, nil
}

func (store *PostgresStorage) GetGuest(ctx context.Context, deviceID string) (model.Credentials, error) {
	const query = `SELECT email, password FROM guest_credentials WHERE device_id = $1`

	var creds model.Credentials
	err := store.db.QueryRow(ctx, query, deviceID).Scan(&creds.Email, &creds.Password)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credentials{}, errs.ErrGuestNotFound
		}
		return model.Credentials{}, fmt.Errorf("get guest: %w", err)
	}

	return creds, nil
}

func (store *PostgresStorage) SaveGuest(ctx context.Context, deviceID string, creds model.Credentials) error {
	const query = `
		INSERT INTO guest_credentials (device_id, email, password)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id) DO UPDATE SET email = EXCLUDED.email, password = EXCLUDED.password`

	if _, err := store.db.Exec(ctx, query, deviceID, creds.Email, creds.Password); err != nil {
		return fmt.Errorf("save guest: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	var balance string

	if err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &balance); err != nil {
		return model.Profile{}, err
	}

	b, err := decimal.NewFromString(balance)
	if err != nil {
		return model.Profile{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	p.Balance = b

	return p, nil
}
