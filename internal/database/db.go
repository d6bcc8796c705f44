package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/migrations"
)

type DB struct {
	conn   *sql.DB
	dbType string
	logger logger.Logger
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config, log logger.Logger) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if log == nil {
		log = logger.NewNop()
	}
	db := &DB{conn: conn, dbType: config.Type, logger: log}

	// Only create tables for SQLite; postgres goes through migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS search_history (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		total_results INTEGER NOT NULL,
		searched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_query ON search_history (query);
	`

	_, err := db.conn.Exec(query)
	return err
}

// RunMigrations applies the embedded SQL migrations.
func (db *DB) RunMigrations() error {
	return NewMigrator(db.conn, db.dbType, db.logger).Run(migrations.FS)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Type() string {
	return db.dbType
}
