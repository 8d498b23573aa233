package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chartly/internal/domain"
)

// ConnectionStore persists saved external database connections used as
// import sources.
type ConnectionStore struct {
	db *DB
}

func NewConnectionStore(db *DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

func (s *ConnectionStore) Create(ctx context.Context, c *domain.DatabaseConnection) error {
	now := time.Now()
	c.ID = uuid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO db_connections (id, user_id, name, driver, host, port, database_name, username, ssl_mode, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (*domain.DatabaseConnection, error) {
	c := &domain.DatabaseConnection{}
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, driver, host, port, database_name, username, ssl_mode, created_at, updated_at
		 FROM db_connections WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("connection not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConnectionStore) ListByUser(ctx context.Context, userID string) ([]domain.DatabaseConnection, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, driver, host, port, database_name, username, ssl_mode, created_at, updated_at
		 FROM db_connections WHERE user_id = ? ORDER BY name ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.DatabaseConnection
	for rows.Next() {
		var c domain.DatabaseConnection
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Driver, &c.Host, &c.Port, &c.Database, &c.Username, &c.SSLMode, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (s *ConnectionStore) Update(ctx context.Context, c *domain.DatabaseConnection) error {
	c.UpdatedAt = time.Now()
	_, err := s.db.conn.ExecContext(ctx,
		`UPDATE db_connections SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Driver, c.Host, c.Port, c.Database, c.Username, c.SSLMode, c.UpdatedAt, c.ID,
	)
	return err
}

func (s *ConnectionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM db_connections WHERE id = ?`, id)
	return err
}
