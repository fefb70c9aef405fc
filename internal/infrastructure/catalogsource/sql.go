package catalogsource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/pharmasource/backend/internal/domain"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// schema creates the catalog tables; the position column keeps display order
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cosmetics (
		id               TEXT    PRIMARY KEY,
		position         INTEGER NOT NULL,
		brand_name       TEXT    NOT NULL,
		specific_name    TEXT    NOT NULL,
		specific_name_ar TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS milk_formulas (
		id           TEXT    PRIMARY KEY,
		position     INTEGER NOT NULL,
		brand        TEXT    NOT NULL,
		name         TEXT    NOT NULL,
		key_features TEXT    NOT NULL DEFAULT '',
		differences  TEXT    NOT NULL DEFAULT '',
		type         TEXT    NOT NULL,
		stage        TEXT    NOT NULL DEFAULT '',
		age_range    TEXT    NOT NULL DEFAULT '',
		special_type TEXT    NOT NULL DEFAULT '',
		indication   TEXT    NOT NULL DEFAULT ''
	)`,
}

// SQL loads the catalog from the cosmetics and milk_formulas tables of a
// SQLite or Postgres database.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database behind a SQL catalog source
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s catalog: %w", driver, err)
	}
	return &SQL{db: db, driver: driver}, nil
}

// NewSQL wraps an already open database
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

// Name identifies the source in cache keys and logs
func (s *SQL) Name() string {
	return s.driver
}

// Close closes the underlying database connection
func (s *SQL) Close() error {
	return s.db.Close()
}

// Load reads both catalog tables in position order
func (s *SQL) Load(ctx context.Context) (*domain.Catalog, error) {
	var f catalogFile

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, brand_name, specific_name, specific_name_ar FROM cosmetics ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query cosmetics: %w", err)
	}
	for rows.Next() {
		var r cosmeticRecord
		if err := rows.Scan(&r.ID, &r.BrandName, &r.SpecificName, &r.SpecificNameAr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cosmetic: %w", err)
		}
		f.Cosmetics = append(f.Cosmetics, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("read cosmetics: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, brand, name, key_features, differences, type, stage, age_range, special_type, indication
		 FROM milk_formulas ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query milk formulas: %w", err)
	}
	for rows.Next() {
		var r milkRecord
		if err := rows.Scan(&r.ID, &r.Brand, &r.Name, &r.KeyFeatures, &r.Differences,
			&r.Type, &r.Stage, &r.AgeRange, &r.SpecialType, &r.Indication); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan milk formula: %w", err)
		}
		f.Milk = append(f.Milk, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("read milk formulas: %w", err)
	}

	return f.toDomain()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// Seed creates the catalog tables if needed and replaces their contents
// with cat in a single transaction.
func (s *SQL) Seed(ctx context.Context, cat *domain.Catalog) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	f := fromDomain(cat)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create catalog tables: %w", err)
		}
	}
	for _, table := range []string{"cosmetics", "milk_formulas"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertCosmetic := s.rebind(`INSERT INTO cosmetics (id, position, brand_name, specific_name, specific_name_ar) VALUES (?, ?, ?, ?, ?)`)
	for _, r := range f.Cosmetics {
		if _, err := tx.ExecContext(ctx, insertCosmetic,
			r.ID, r.Position, r.BrandName, r.SpecificName, r.SpecificNameAr); err != nil {
			return fmt.Errorf("insert cosmetic %q: %w", r.ID, err)
		}
	}

	insertMilk := s.rebind(`INSERT INTO milk_formulas
		(id, position, brand, name, key_features, differences, type, stage, age_range, special_type, indication)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, r := range f.Milk {
		if _, err := tx.ExecContext(ctx, insertMilk,
			r.ID, r.Position, r.Brand, r.Name, r.KeyFeatures, r.Differences,
			r.Type, r.Stage, r.AgeRange, r.SpecialType, r.Indication); err != nil {
			return fmt.Errorf("insert milk formula %q: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
