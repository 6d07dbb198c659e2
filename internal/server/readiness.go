package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
	ReadinessStateOptional ReadinessState = "optional"
)

type ReadinessIssue struct {
	ID       string            `json:"id"`
	Status   ReadinessState    `json:"status"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

type ReadinessResponse struct {
	SystemState ReadinessState   `json:"system_state"`
	Issues      []ReadinessIssue `json:"issues"`
}

const readinessTimeout = 3 * time.Second

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.Version})
}

// GetSystemReadiness reports whether the schema, database and cache are
// usable. Redis is optional and never fails readiness when unconfigured.
func (s *Server) GetSystemReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	issues := make([]ReadinessIssue, 0, 3)
	isReady := true

	// Schema gate
	if s.schemaGate == nil {
		isReady = false
		issues = append(issues, notReady("schema_gate", "schema gate not configured"))
	} else if err := s.schemaGate.MustBeActive(ctx); err != nil {
		isReady = false
		issues = append(issues, notReady("schema_gate", err.Error()))
	} else {
		issues = append(issues, ReadinessIssue{ID: "schema_gate", Status: ReadinessStateReady})
	}

	// Database
	if err := s.pingDatabase(ctx); err != nil {
		isReady = false
		issues = append(issues, notReady("database", err.Error()))
	} else {
		issues = append(issues, ReadinessIssue{ID: "database", Status: ReadinessStateReady})
	}

	// Redis
	switch {
	case s.redis == nil:
		issues = append(issues, ReadinessIssue{ID: "redis", Status: ReadinessStateOptional})
	case s.redis.Ping(ctx).Err() != nil:
		isReady = false
		issues = append(issues, notReady("redis", "ping failed"))
	default:
		issues = append(issues, ReadinessIssue{ID: "redis", Status: ReadinessStateReady})
	}

	state := ReadinessStateReady
	status := http.StatusOK
	if !isReady {
		state = ReadinessStateNotReady
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ReadinessResponse{SystemState: state, Issues: issues})
}

func (s *Server) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return errDatabaseNotConfigured
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notReady(id, reason string) ReadinessIssue {
	return ReadinessIssue{
		ID:       id,
		Status:   ReadinessStateNotReady,
		Evidence: map[string]string{"error": reason},
	}
}
