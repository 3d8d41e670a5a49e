// Package postgres stores saved documents in PostgreSQL through pgx's
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB lazily opens and shares one *sql.DB per DSN. Changing the DSN closes
// the previous handle.
type DB struct {
	mu  sync.Mutex
	dsn string
	db  *sql.DB
}

// NewDB creates an empty manager.
func NewDB() *DB {
	return &DB{}
}

// Get returns the handle for dsn, opening it on first use.
func (p *DB) Get(dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil && p.dsn == dsn {
		return p.db, nil
	}
	if p.db != nil {
		_ = p.db.Close()
		p.db, p.dsn = nil, ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	p.db, p.dsn = db, dsn
	return db, nil
}

// Ping verifies the current handle can reach the server.
func (p *DB) Ping(ctx context.Context, dsn string) error {
	db, err := p.Get(dsn)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Close releases the handle.
func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db, p.dsn = nil, ""
	return err
}
