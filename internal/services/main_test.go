package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/shopstack/ecommerce-api/internal/db"
	"github.com/shopstack/ecommerce-api/internal/metrics"
	"github.com/shopstack/ecommerce-api/internal/models"
)

const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'USER',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	merchant_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	price REAL NOT NULL,
	stock INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE product_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	url TEXT NOT NULL,
	name TEXT NOT NULL,
	is_main INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE carts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE cart_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cart_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (cart_id, product_id)
);

CREATE TABLE orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	total REAL NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	method TEXT NOT NULL,
	amount REAL NOT NULL,
	status TEXT NOT NULL,
	paid_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	message TEXT NOT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
`

// newTestDB opens an in-memory SQLite database with the application
// schema. The busy timeout keeps concurrent transaction tests from
// failing with SQLITE_BUSY instead of waiting for the write lock.
func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared&_pragma=busy_timeout(10000)")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	return db.Wrap(conn)
}

func testMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	return metrics.NewTesting()
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// seedUser inserts a user row and returns its ID.
func seedUser(t *testing.T, database *db.DB, name, email string, role models.Role) int64 {
	t.Helper()
	now := time.Now()
	res, err := database.ExecContext(context.Background(),
		"INSERT INTO users (name, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		name, email, "x", string(role), now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// seedCategory inserts a category row and returns its ID.
func seedCategory(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()
	res, err := database.ExecContext(context.Background(),
		"INSERT INTO categories (name, created_at) VALUES (?, ?)", name, time.Now())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// seedProduct inserts a product row and returns its ID.
func seedProduct(t *testing.T, database *db.DB, merchantID, categoryID int64, name string, price float64, stock int) int64 {
	t.Helper()
	now := time.Now()
	res, err := database.ExecContext(context.Background(),
		"INSERT INTO products (merchant_id, category_id, name, price, stock, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		merchantID, categoryID, name, price, stock, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// productStock reads the current stock for a product.
func productStock(t *testing.T, database *db.DB, productID int64) int {
	t.Helper()
	var stock int
	err := database.QueryRowContext(context.Background(),
		"SELECT stock FROM products WHERE id = ?", productID).Scan(&stock)
	require.NoError(t, err)
	return stock
}
