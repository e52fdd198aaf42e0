package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "storefront/internal/log"
)

// ErrRollback marks a transaction whose rollback failed after an earlier
// error. Writes made inside it may have been left behind.
var ErrRollback = errors.New("rollback failed")

// tsLayout sorts lexically in time order, unlike RFC3339Nano.
const tsLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t the way every created_at column stores it.
func Timestamp(t time.Time) string { return t.UTC().Format(tsLayout) }

func stamp() string { return Timestamp(time.Now()) }

// oneRow maps "no row touched" to sql.ErrNoRows.
func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OpenDB connects to sqlite (default) or postgres, applies the schema and
// seeds demo data when the catalog is empty.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = "sqlite"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	switch driver {
	case "sqlite":
		// One connection: writes serialize and ":memory:" stays a single database.
		db.SetMaxOpenConns(1)
	case "postgres":
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := seedIfEmpty(ctx, db); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	if err := seedUsers(ctx, db); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	return db, nil
}

// InTx runs fn inside one transaction. fn's error rolls back; a failed
// rollback is reported with ErrRollback joined to the original error.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w; %w: %v", err, ErrRollback, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const schema = `
-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  created_at TEXT
);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_featured BOOLEAN NOT NULL DEFAULT FALSE,
  images_json TEXT,
  created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT
);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT,
  last_seen TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Cart lines: one per (user, product)
CREATE TABLE IF NOT EXISTS cart_lines(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at TEXT,
  updated_at TEXT,
  UNIQUE (user_id, product_id)
);

-- Coupons
CREATE TABLE IF NOT EXISTS coupons(
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL CHECK (discount_type IN ('percentage','flat')),
  discount_value NUMERIC NOT NULL CHECK (discount_value > 0),
  min_order_amount NUMERIC NOT NULL DEFAULT 0 CHECK (min_order_amount >= 0),
  max_uses INTEGER NULL CHECK (max_uses IS NULL OR max_uses >= 0),
  used_count INTEGER NOT NULL DEFAULT 0 CHECK (used_count >= 0),
  expire_at TEXT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TEXT
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  ship_full_name TEXT NOT NULL,
  ship_address TEXT NOT NULL,
  ship_city TEXT NOT NULL,
  ship_zip_code TEXT NOT NULL,
  ship_phone TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  coupon_code TEXT NULL,
  subtotal NUMERIC NOT NULL,
  shipping NUMERIC NOT NULL,
  discount NUMERIC NOT NULL,
  total_amount NUMERIC NOT NULL CHECK (total_amount >= 0),
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);
`

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	ddl := schema
	if db.DriverName() == "sqlite" {
		ddl = "PRAGMA foreign_keys = ON;\n" + ddl
	}
	_, err := db.ExecContext(ctx, ddl)
	return err
}

func seedIfEmpty(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Event(applog.LevelInfo, "seed.catalog", nil, nil)

	now := stamp()
	return InTx(ctx, db, func(tx *sqlx.Tx) error {
		cats := []struct{ id, name, slug string }{
			{"cat-kitchen", "Kitchen", "kitchen"},
			{"cat-lighting", "Lighting", "lighting"},
			{"cat-audio", "Audio", "audio"},
		}
		for _, c := range cats {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO categories(id,name,slug,created_at) VALUES(?,?,?,?)`),
				c.id, c.name, c.slug, now); err != nil {
				return err
			}
		}

		prods := []struct {
			id, cat, name, slug, desc, price string
			stock                           int
			featured                        bool
		}{
			{"p-mug", "cat-kitchen", "Stoneware Mug", "stoneware-mug", "Hand-glazed 350ml mug", "20.00", 25, true},
			{"p-kettle", "cat-kitchen", "Gooseneck Kettle", "gooseneck-kettle", "Pour-over kettle, 1L", "49.99", 6, false},
			{"p-lamp", "cat-lighting", "Brass Desk Lamp", "brass-desk-lamp", "Adjustable arm, warm LED", "64.50", 3, true},
			{"p-bulb", "cat-lighting", "Filament Bulb", "filament-bulb", "E27, 4W", "7.25", 40, false},
			{"p-speaker", "cat-audio", "Bookshelf Speaker", "bookshelf-speaker", "Passive, pair", "129.00", 0, true},
		}
		for _, p := range prods {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO products(id,category_id,name,slug,description,price,stock,is_featured,images_json,created_at)
				VALUES(?,?,?,?,?,?,?,?,?,?)`),
				p.id, p.cat, p.name, p.slug, p.desc, p.price, p.stock, p.featured,
				`["products/`+p.slug+`/main.jpg"]`, now); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO coupons(id,code,discount_type,discount_value,min_order_amount,max_uses,used_count,expire_at,is_active,created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?), (?,?,?,?,?,?,?,?,?,?)`),
			"c-welcome", "WELCOME10", "percentage", "10", "0", nil, 0, nil, true, now,
			"c-five", "FIVEOFF", "flat", "5", "30", 100, 0, nil, true, now,
		); err != nil {
			return err
		}
		return nil
	})
}

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(ctx context.Context, db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}, err
	}

	var users []u
	for _, x := range [][4]string{
		{"u-alice", "alice@storefront.test", "Alice", "USER"},
		{"u-bob", "bob@storefront.test", "Bob", "USER"},
		{"u-admin", "admin@storefront.test", "Admin", "ADMIN"},
	} {
		var exists int
		if err := db.GetContext(ctx, &exists, db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), x[1]); err != nil {
			return err
		}
		if exists > 0 {
			continue
		}
		usr, err := mk(x[0], x[1], x[2], x[3], "Passw0rd!")
		if err != nil {
			return err
		}
		users = append(users, usr)
	}
	if len(users) == 0 {
		return nil
	}

	return InTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, x := range users {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO users(id,email,name,password_hash,role,created_at)
				VALUES(?,?,?,?,?,?)
				ON CONFLICT(email) DO NOTHING
			`), x.ID, x.Email, x.Name, x.Hash, x.Role, stamp()); err != nil {
				return err
			}
		}
		return nil
	})
}
