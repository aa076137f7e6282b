package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const defaultPingTimeout = 5 * time.Second

// SQLStore reads reference chunks from a relational table. Embeddings
// are stored as JSON float arrays in a text column.
type SQLStore struct {
	db    *sql.DB
	table string
}

// SQLConfig holds relational corpus settings.
type SQLConfig struct {
	Table        string
	MaxOpenConns int
	MaxIdleConns int
}

// NewSQLiteStore opens a read-only corpus backed by SQLite.
func NewSQLiteStore(path string, cfg SQLConfig) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite corpus: %w", err)
	}
	db.SetMaxOpenConns(1)

	return newSQLStore(db, cfg)
}

// NewPostgresStore opens a corpus backed by Postgres.
func NewPostgresStore(dsn string, cfg SQLConfig) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres corpus: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return newSQLStore(db, cfg)
}

func newSQLStore(db *sql.DB, cfg SQLConfig) (*SQLStore, error) {
	table := cfg.Table
	if table == "" {
		table = "reference_chunks"
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping corpus database: %w", err)
	}

	return &SQLStore{db: db, table: table}, nil
}

// Chunks loads every active reference chunk.
func (s *SQLStore) Chunks(ctx context.Context) ([]Chunk, error) {
	query := fmt.Sprintf(
		`SELECT id, title, category, content, embedding FROM %s WHERE is_active = TRUE ORDER BY id`,
		s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			chunk    Chunk
			rawEmbed []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Category, &chunk.Text, &rawEmbed); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}

		if len(rawEmbed) > 0 {
			if err := json.Unmarshal(rawEmbed, &chunk.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding for chunk %s: %w", chunk.ID, err)
			}
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus rows: %w", err)
	}

	return chunks, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
