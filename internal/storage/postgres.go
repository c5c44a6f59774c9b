package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)
	return openPostgres(connStr, logger)
}

// openPostgres connects with a lib/pq connection string (key=value or URL)
// and applies the schema.
func openPostgres(connStr string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Load(ctx context.Context) (*models.CategoryState, error) {
	categories, err := s.loadCategories(ctx)
	if err != nil {
		return nil, err
	}

	state := &models.CategoryState{Categories: categories}
	if len(categories) == 0 {
		s.logger.Info("No categories stored, seeding defaults")
		state = models.NewCategoryState()
		if err := s.Save(ctx, state); err != nil {
			return nil, err
		}
		return state, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT file_id, category FROM file_categories`)
	if err != nil {
		return nil, fmt.Errorf("error querying file categories: %w", err)
	}
	defer rows.Close()

	state.FileCategories = make(map[string]string)
	for rows.Next() {
		var fileID, category string
		if err := rows.Scan(&fileID, &category); err != nil {
			return nil, fmt.Errorf("error scanning file category: %w", err)
		}
		state.FileCategories[fileID] = category
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading file categories: %w", err)
	}

	return state, nil
}

func (s *PostgresStorage) loadCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, name)
	}
	return categories, rows.Err()
}

// Save replaces both tables in one transaction.
func (s *PostgresStorage) Save(ctx context.Context, state *models.CategoryState) error {
	state = normalize(state)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("error clearing categories: %w", err)
	}
	for i, name := range state.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, position) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			name, i); err != nil {
			return fmt.Errorf("error inserting category %q: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_categories`); err != nil {
		return fmt.Errorf("error clearing file categories: %w", err)
	}
	for fileID, category := range state.FileCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO file_categories (file_id, category) VALUES ($1, $2)`,
			fileID, category); err != nil {
			return fmt.Errorf("error inserting file category %q: %w", fileID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing categories: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
