package storage

import (
	"context"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rl1809/warehouse/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate applies the embedded schema. Closing the returned instance also
// closes db.
func Migrate(db *sqlx.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "open migrations")
	}
	driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "migrate driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return nil, errors.Wrap(err, "migrate instance")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, errors.Wrap(err, "migrate up")
	}
	return m, nil
}

func (m *MySQLAdapter) LoadAll(ctx context.Context) ([]domain.Product, []domain.OperationRecord, error) {
	var productRows []productRecord
	err := m.db.SelectContext(ctx, &productRows, `
		SELECT sku, name, quantity, unit_price, supplier, last_delivery_date
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query products")
	}
	products, err := fromProductRecords(productRows)
	if err != nil {
		return nil, nil, err
	}

	var operationRows []operationRecord
	err = m.db.SelectContext(ctx, &operationRows, `
		SELECT seq, id, sku, type, quantity, difference, balance, unit_price, reason, operation_date, recorded_at
		FROM operations ORDER BY seq`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query operations")
	}
	operations, err := fromOperationRecords(operationRows)
	if err != nil {
		return nil, nil, err
	}

	return products, operations, nil
}

// SaveProducts replaces the products table in one transaction.
func (m *MySQLAdapter) SaveProducts(ctx context.Context, products []domain.Product) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return errors.Wrap(err, "clear products")
	}

	if len(products) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO products (sku, name, quantity, unit_price, supplier, last_delivery_date)
			VALUES (:sku, :name, :quantity, :unit_price, :supplier, :last_delivery_date)`,
			toProductRecords(products),
		)
		if err != nil {
			return errors.Wrap(err, "insert products")
		}
	}

	return errors.Wrap(tx.Commit(), "commit products")
}

// SaveOperations receives the whole ledger but only inserts the entries past
// the highest stored sequence, since ledger entries never change.
func (m *MySQLAdapter) SaveOperations(ctx context.Context, operations []domain.OperationRecord) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var maxSeq int64
	if err := tx.GetContext(ctx, &maxSeq, `SELECT COALESCE(MAX(seq), 0) FROM operations`); err != nil {
		return errors.Wrap(err, "query max sequence")
	}

	var pending []domain.OperationRecord
	for _, o := range operations {
		if o.Sequence > maxSeq {
			pending = append(pending, o)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO operations (seq, id, sku, type, quantity, difference, balance, unit_price, reason, operation_date, recorded_at)
		VALUES (:seq, :id, :sku, :type, :quantity, :difference, :balance, :unit_price, :reason, :operation_date, :recorded_at)`,
		toOperationRecords(pending),
	)
	if err != nil {
		return errors.Wrap(err, "insert operations")
	}

	return errors.Wrap(tx.Commit(), "commit operations")
}
