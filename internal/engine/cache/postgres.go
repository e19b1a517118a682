package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTableName is the table used when PostgresOptions.Table is empty.
const DefaultTableName = "listings"

// defaultMaxConns keeps the pool small; the store is loaded and saved once.
const defaultMaxConns = 2

// tableNamePattern restricts table names to plain identifiers.
//
//nolint:gochecknoglobals // Compiled once.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresOptions configures a PostgresRepository.
type PostgresOptions struct {
	DSN      string
	Table    string
	MaxConns int
	// ViaBouncer switches to the simple protocol for PgBouncer transaction pooling.
	ViaBouncer bool
}

// PostgresRepository persists listings in a Postgres table with the same
// columns as the CSV layout.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresRepository opens a connection pool and ensures the table exists.
func NewPostgresRepository(ctx context.Context, opts PostgresOptions) (*PostgresRepository, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres DSN cannot be empty")
	}
	table, err := validTableName(opts.Table)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	cfg.MaxConns = int32(maxConns) //nolint:gosec // bounded by config validation
	if opts.ViaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	repo := &PostgresRepository{pool: pool, table: table}
	if schemaErr := repo.ensureSchema(ctx); schemaErr != nil {
		pool.Close()
		return nil, schemaErr
	}
	return repo, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, createTableSQL(r.table))
	if err != nil {
		return fmt.Errorf("creating table %s: %w", r.table, err)
	}
	return nil
}

// Load selects every row in the table.
func (r *PostgresRepository) Load(ctx context.Context) ([]Listing, error) {
	rows, err := r.pool.Query(ctx, selectAllSQL(r.table))
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}

	listings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Listing, error) {
		var (
			l   Listing
			end time.Time
		)
		if scanErr := row.Scan(&l.Name, &l.Price, &l.ImageURL, &l.ShopURL, &l.ID, &end); scanErr != nil {
			return Listing{}, scanErr
		}
		l.Expiry = NormalizeExpiry(end)
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
	}
	return listings, nil
}

// Save replaces the table contents with listings in a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, listings []Listing) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, deleteAllSQL(r.table)); err != nil {
		return fmt.Errorf("clearing listings: %w", err)
	}

	if len(listings) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{r.table}, csvHeader, pgx.CopyFromRows(listingRows(listings)))
		if err != nil {
			return fmt.Errorf("copying listings: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing listings: %w", err)
	}
	return nil
}

// listingRows converts listings to COPY rows in csvHeader column order.
func listingRows(listings []Listing) [][]any {
	rows := make([][]any, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []any{l.Name, l.Price, l.ImageURL, l.ShopURL, l.ID, l.Expiry.UTC()})
	}
	return rows
}

func validTableName(name string) (string, error) {
	if name == "" {
		return DefaultTableName, nil
	}
	if !tableNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		name      TEXT             NOT NULL,
		price     DOUBLE PRECISION NOT NULL,
		image_url TEXT             NOT NULL DEFAULT '',
		shop_url  TEXT             NOT NULL,
		item_id   TEXT             NOT NULL,
		end_time  TIMESTAMP        NOT NULL
	)`
}

func selectAllSQL(table string) string {
	return `SELECT name, price, image_url, shop_url, item_id, end_time FROM ` + table
}

func deleteAllSQL(table string) string {
	return `DELETE FROM ` + table
}
