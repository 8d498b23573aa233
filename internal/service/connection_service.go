package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chartly/internal/dbclient"
	"chartly/internal/domain"
	"chartly/internal/secret"
	"chartly/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Connection Service — saved source database connections
// ─────────────────────────────────────────────────────────────

// ConnInput is the service-layer DTO for creating/updating connections.
type ConnInput struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

// ConnectionService manages saved external database connections and
// runs import queries against them. Live connections are pooled and
// reused until the config changes. It satisfies sources.QueryProvider.
type ConnectionService struct {
	connStore *storage.ConnectionStore
	secrets   secret.SecretStore

	mu     sync.Mutex
	active map[string]*connEntry
}

type connEntry struct {
	conn      *dbclient.Conn
	createdAt time.Time
}

func NewConnectionService(connStore *storage.ConnectionStore, secrets secret.SecretStore) *ConnectionService {
	return &ConnectionService{
		connStore: connStore,
		secrets:   secrets,
		active:    make(map[string]*connEntry),
	}
}

// ── Connection CRUD ────────────────────────────────────────

func (s *ConnectionService) List(ctx context.Context, userID string) ([]domain.DatabaseConnection, error) {
	return s.connStore.ListByUser(ctx, userID)
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.DatabaseConnection, error) {
	return s.connStore.Get(ctx, id)
}

func (s *ConnectionService) Create(ctx context.Context, userID string, input ConnInput) (*domain.DatabaseConnection, error) {
	conn := &domain.DatabaseConnection{
		UserID:   userID,
		Name:     input.Name,
		Driver:   input.Driver,
		Host:     input.Host,
		Port:     input.Port,
		Database: input.Database,
		Username: input.Username,
		SSLMode:  input.SSLMode,
	}
	if err := s.connStore.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if input.Password != "" && s.secrets != nil {
		_ = s.secrets.Set("db:"+conn.ID, []byte(input.Password))
	}
	return conn, nil
}

func (s *ConnectionService) Update(ctx context.Context, id string, input ConnInput) error {
	conn, err := s.connStore.Get(ctx, id)
	if err != nil {
		return err
	}
	conn.Name = input.Name
	conn.Driver = input.Driver
	conn.Host = input.Host
	conn.Port = input.Port
	conn.Database = input.Database
	conn.Username = input.Username
	conn.SSLMode = input.SSLMode
	if err := s.connStore.Update(ctx, conn); err != nil {
		return err
	}
	if input.Password != "" && s.secrets != nil {
		_ = s.secrets.Set("db:"+id, []byte(input.Password))
	}
	// Invalidate the pooled connection so the next query reconnects
	// with the new config.
	s.evict(id)
	return nil
}

func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	s.evict(id)
	if s.secrets != nil {
		_ = s.secrets.Delete("db:" + id)
	}
	return s.connStore.Delete(ctx, id)
}

func (s *ConnectionService) evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.active[id]; ok {
		_ = e.conn.Close()
		delete(s.active, id)
	}
}

// ── Query Execution ────────────────────────────────────────

// maxConnAge bounds how long a pooled connection is reused.
const maxConnAge = 30 * time.Minute

func (s *ConnectionService) connect(ctx context.Context, id string) (*dbclient.Conn, error) {
	s.mu.Lock()
	if e, ok := s.active[id]; ok && time.Since(e.createdAt) < maxConnAge {
		s.mu.Unlock()
		return e.conn, nil
	}
	s.mu.Unlock()

	meta, err := s.connStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	password := ""
	if s.secrets != nil {
		if pw, err := s.secrets.Get("db:" + id); err == nil {
			password = string(pw)
		}
	}

	conn, err := dbclient.Open(dbclient.ConnConfig{
		Driver:   dbclient.Driver(meta.Driver),
		Host:     meta.Host,
		Port:     meta.Port,
		Database: meta.Database,
		Username: meta.Username,
		SSLMode:  meta.SSLMode,
	}, password)
	if err != nil {
		return nil, fmt.Errorf("open connection %s: %w", meta.Name, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", meta.Name, err)
	}

	s.mu.Lock()
	if old, ok := s.active[id]; ok {
		_ = old.conn.Close()
	}
	s.active[id] = &connEntry{conn: conn, createdAt: time.Now()}
	s.mu.Unlock()

	return conn, nil
}

// TestConnection opens and pings a connection without saving it.
func (s *ConnectionService) TestConnection(ctx context.Context, input ConnInput) error {
	conn, err := dbclient.Open(dbclient.ConnConfig{
		Driver:   dbclient.Driver(input.Driver),
		Host:     input.Host,
		Port:     input.Port,
		Database: input.Database,
		Username: input.Username,
		SSLMode:  input.SSLMode,
	}, input.Password)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Ping(ctx)
}

// RunQuery executes a read query against a saved connection.
// Satisfies sources.QueryProvider.
func (s *ConnectionService) RunQuery(ctx context.Context, connectionID, query string, maxRows int) ([]string, [][]any, error) {
	conn, err := s.connect(ctx, connectionID)
	if err != nil {
		return nil, nil, err
	}
	return conn.Query(ctx, query, maxRows)
}

// Close releases every pooled connection.
func (s *ConnectionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.active {
		_ = e.conn.Close()
		delete(s.active, id)
	}
}
