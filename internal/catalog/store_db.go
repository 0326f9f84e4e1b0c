package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	price       TEXT NOT NULL,
	thumbnail   TEXT NOT NULL,
	stock       TEXT NOT NULL
)`

const productColumns = `id, code, title, description, price, thumbnail, stock`

// PostgresStore keeps products in a products table. Ids come from an
// identity column, so they are never reused after a delete.
type PostgresStore struct {
	db  *sqlx.DB
	log *zap.Logger
}

func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, "pgx", dsn)
}

func NewPostgresStore(db *sqlx.DB, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	out := make([]Product, 0, 16)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &out, `
			SELECT `+productColumns+`
			FROM products
			ORDER BY id ASC
		`)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &p, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
		`, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Info("product not found", zap.Int64("id", id))
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, in NewProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		s.log.Info("product rejected", zap.Error(err))
		return Product{}, err
	}

	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &p, `
			INSERT INTO products (code, title, description, price, thumbnail, stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+productColumns,
			in.Code, in.Title, in.Description, in.Price, in.Thumbnail, in.Stock)
	})
	if isUniqueViolation(err) {
		s.log.Info("product rejected: duplicate code", zap.String("code", in.Code))
		return Product{}, ErrDuplicateCode
	}
	if err != nil {
		return Product{}, err
	}

	s.log.Info("product created", zap.Int64("id", p.ID), zap.String("code", p.Code))
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := tx.GetContext(ctx, &p, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
			FOR UPDATE
		`, id); err != nil {
			return err
		}

		p = patch.Apply(p)

		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET code = $2, title = $3, description = $4, price = $5, thumbnail = $6, stock = $7
			WHERE id = $1
		`, p.ID, p.Code, p.Title, p.Description, p.Price, p.Thumbnail, p.Stock); err != nil {
			return err
		}

		return tx.Commit()
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.log.Info("update: product not found", zap.Int64("id", id))
		return Product{}, ErrNotFound
	case isUniqueViolation(err):
		s.log.Info("update rejected: duplicate code", zap.Int64("id", id), zap.String("code", p.Code))
		return Product{}, ErrDuplicateCode
	case err != nil:
		return Product{}, err
	}

	s.log.Info("product updated", zap.Int64("id", id))
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	var n int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Info("delete: product not found", zap.Int64("id", id))
		return ErrNotFound
	}

	s.log.Info("product deleted", zap.Int64("id", id))
	return nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
