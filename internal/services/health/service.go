package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the /health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB Pinger
}

// NewService constructs a health service. A nil db reports in-memory storage.
func NewService(db Pinger) *Service {
	return &Service{DB: db}
}

// Status pings the database when one is configured.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.DB == nil {
		return Status{OK: true, Database: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return Status{OK: false, Database: "down"}
	}
	return Status{OK: true, Database: "up"}
}
