package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"propertychat/internal/model"
	"propertychat/internal/utils"
)

const propertyColumns = `id, title, price, location, bedrooms, bathrooms, size_sqft, amenities, image_url`

// PostgresRepository serves the catalog, filtering and user profiles from PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	id         BIGINT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	price      DOUBLE PRECISION NOT NULL DEFAULT 0,
	location   TEXT NOT NULL DEFAULT '',
	bedrooms   INTEGER NOT NULL DEFAULT 0,
	bathrooms  INTEGER NOT NULL DEFAULT 0,
	size_sqft  DOUBLE PRECISION NOT NULL DEFAULT 0,
	amenities  JSONB NOT NULL DEFAULT '[]'::jsonb,
	image_url  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	name        TEXT,
	email       TEXT,
	preferences JSONB,
	messages    JSONB,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the properties and users tables if they are missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Catalog returns every property in id order
func (r *PostgresRepository) Catalog(ctx context.Context) ([]model.Property, error) {
	props := []model.Property{}
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY id`
	if err := r.db.SelectContext(ctx, &props, query); err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return props, nil
}

// Filter returns the properties matching every set field of criteria
func (r *PostgresRepository) Filter(ctx context.Context, criteria model.Criteria) ([]model.Property, error) {
	where, args := buildFilterQuery(criteria)

	props := []model.Property{}
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY id`, propertyColumns, where)
	if err := r.db.SelectContext(ctx, &props, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter properties: %w", err)
	}
	return props, nil
}

// buildFilterQuery turns criteria into a WHERE clause with positional args.
// Null and absent fields add no condition.
func buildFilterQuery(c model.Criteria) (string, []interface{}) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		whereClauses = append(whereClauses, fmt.Sprintf(cond, len(args)))
	}

	if v, ok := c.Location.Get(); ok {
		add("location ILIKE $%d", "%"+v+"%")
	}
	if v, ok := c.MinBedrooms.Get(); ok {
		add("bedrooms >= $%d", v)
	}
	if v, ok := c.MaxBedrooms.Get(); ok {
		add("bedrooms <= $%d", v)
	}
	if v, ok := c.MinBathrooms.Get(); ok {
		add("bathrooms >= $%d", v)
	}
	if v, ok := c.MaxBathrooms.Get(); ok {
		add("bathrooms <= $%d", v)
	}
	if v, ok := c.MinPrice.Get(); ok {
		add("price >= $%d", v)
	}
	if v, ok := c.MaxPrice.Get(); ok {
		add("price <= $%d", v)
	}
	if v, ok := c.MinSize.Get(); ok {
		add("size_sqft >= $%d", v)
	}
	if v, ok := c.MaxSize.Get(); ok {
		add("size_sqft <= $%d", v)
	}

	// JSONB amenities - each requested amenity must match one element through any alias
	if amenities, ok := c.Amenities.Get(); ok {
		for _, term := range amenities {
			patterns := utils.AmenityPatterns(term)
			if len(patterns) == 0 {
				continue
			}
			var orConditions []string
			for _, pattern := range patterns {
				args = append(args, "%"+pattern+"%")
				orConditions = append(orConditions, fmt.Sprintf("elem ILIKE $%d", len(args)))
			}
			whereClauses = append(whereClauses,
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE "+strings.Join(orConditions, " OR ")+")")
		}
	}

	return strings.Join(whereClauses, " AND "), args
}

// userRow is a users row; JSONB columns are decoded by hand so that the
// tri-state criteria fields survive the round trip
type userRow struct {
	ID          string         `db:"id"`
	Name        sql.NullString `db:"name"`
	Email       sql.NullString `db:"email"`
	Preferences []byte         `db:"preferences"`
	Messages    []byte         `db:"messages"`
}

// GetUser loads a profile; unknown ids return (nil, nil)
func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var row userRow
	query := `SELECT id, name, email, preferences, messages FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toUser()
}

func (row userRow) toUser() (*model.User, error) {
	user := &model.User{ID: row.ID, Name: row.Name.String, Email: row.Email.String}

	if len(row.Preferences) > 0 && string(row.Preferences) != "null" {
		var prefs model.Criteria
		if err := json.Unmarshal(row.Preferences, &prefs); err != nil {
			return nil, fmt.Errorf("failed to decode preferences of %s: %w", row.ID, err)
		}
		user.Preferences = &prefs
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &user.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages of %s: %w", row.ID, err)
		}
	}
	return user, nil
}

// PatchPreferences replaces the saved criteria, creating the user row if needed
func (r *PostgresRepository) PatchPreferences(ctx context.Context, userID string, criteria model.Criteria) error {
	payload, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	query := `
		INSERT INTO users (id, preferences, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, payload); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}

// PatchMessages replaces the saved transcript, creating the user row if needed
func (r *PostgresRepository) PatchMessages(ctx context.Context, userID string, transcript model.Transcript) error {
	if transcript == nil {
		transcript = model.Transcript{}
	}
	payload, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	query := `
		INSERT INTO users (id, messages, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, payload); err != nil {
		return fmt.Errorf("failed to update messages: %w", err)
	}
	return nil
}
