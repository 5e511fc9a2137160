package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/barstock/backend/internal/domain"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const productColumns = "id, name, category, quantity, unit, purchase_price, sale_price, " +
	"min_threshold, active, created_at, updated_at, updated_by, last_import_id"

// SQLCatalog is a catalog provider backed by database/sql
type SQLCatalog struct {
	db     *sql.DB
	driver string
}

// Open connects to a sqlite file or a postgres DSN
func Open(driver, dsn string) (*SQLCatalog, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One writer at a time; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return NewSQLCatalog(db, driver), nil
}

// NewSQLCatalog wraps an existing connection pool
func NewSQLCatalog(db *sql.DB, driver string) *SQLCatalog {
	return &SQLCatalog{db: db, driver: driver}
}

// Ping tests the database connection
func (c *SQLCatalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLCatalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// EnsureSchema creates the products table when missing
func (c *SQLCatalog) EnsureSchema(ctx context.Context) error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if c.driver == DriverPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}

	ddl := `CREATE TABLE IF NOT EXISTS products (
	` + seq + `,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit TEXT NOT NULL DEFAULT '',
	purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	sale_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	updated_by TEXT NOT NULL DEFAULT '',
	last_import_id TEXT NOT NULL DEFAULT ''
)`

	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

// GetAll returns every product in insertion order
func (c *SQLCatalog) GetAll(ctx context.Context) ([]domain.CatalogProduct, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.CatalogProduct{}
	for rows.Next() {
		var (
			p        domain.CatalogProduct
			category string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &category, &p.Quantity, &p.Unit, &p.PurchasePrice, &p.SalePrice,
			&p.MinThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt, &p.UpdatedBy, &p.LastImportID,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Category = domain.Category(category)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// BatchWrite applies ops in a single transaction
func (c *SQLCatalog) BatchWrite(ctx context.Context, ops []domain.WriteOperation) (err error) {
	if len(ops) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateQuery := c.rebind(`UPDATE products SET quantity = ?, updated_at = ?, updated_by = ?, last_import_id = ? WHERE id = ?`)
	insertQuery := c.rebind(`INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for i, op := range ops {
		switch op.Kind {
		case domain.OperationUpdate:
			if op.Fields == nil {
				return fmt.Errorf("op %d: update %q without fields: %w", i, op.ID, domain.ErrInvalidRequest)
			}
			res, execErr := tx.ExecContext(ctx, updateQuery,
				op.Fields.Quantity, op.Fields.UpdatedAt, op.Fields.UpdatedBy, op.Fields.LastImportID, op.ID)
			if execErr != nil {
				return fmt.Errorf("op %d: update %q: %w", i, op.ID, execErr)
			}
			affected, execErr := res.RowsAffected()
			if execErr != nil {
				return fmt.Errorf("op %d: update %q: %w", i, op.ID, execErr)
			}
			if affected == 0 {
				return fmt.Errorf("op %d: update %q: %w", i, op.ID, domain.ErrProductNotFound)
			}

		case domain.OperationCreate:
			if op.Product == nil {
				return fmt.Errorf("op %d: create without product: %w", i, domain.ErrInvalidRequest)
			}
			p := op.Product
			if _, execErr := tx.ExecContext(ctx, insertQuery,
				p.ID, p.Name, string(p.Category), p.Quantity, p.Unit, p.PurchasePrice, p.SalePrice,
				p.MinThreshold, p.Active, p.CreatedAt, p.UpdatedAt, p.UpdatedBy, p.LastImportID,
			); execErr != nil {
				return fmt.Errorf("op %d: create %q: %w", i, p.ID, execErr)
			}

		default:
			return fmt.Errorf("op %d: unknown kind %q: %w", i, op.Kind, domain.ErrInvalidRequest)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind turns "?" placeholders into "$n" for postgres
func (c *SQLCatalog) rebind(query string) string {
	if c.driver != DriverPostgres {
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
