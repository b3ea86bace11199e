package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Blukstak/OxideExpo-sub000/models"
	"github.com/Blukstak/OxideExpo-sub000/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotRunning is returned when events are sent before Start or after Stop
	ErrNotRunning = errors.New("audit service not running")

	// ErrBufferFull is returned when the event buffer cannot accept more events
	ErrBufferFull = errors.New("audit event buffer full")
)

// RequestMeta is the caller context copied onto each audit row
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditService persists authentication events from a bounded queue
// drained by a fixed pool of workers.
type AuditService struct {
	auditRepo     repositories.AuditRepository
	logger        *zap.Logger
	eventChan     chan *models.AuditLog
	workerCount   int
	bufferSize    int
	insertTimeout time.Duration
	wg            sync.WaitGroup
	mu            sync.RWMutex
	started       bool
	stopped       bool
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize    int
	WorkerCount   int
	InsertTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		WorkerCount:   2,
		InsertTimeout: 5 * time.Second,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	if config.InsertTimeout <= 0 {
		config.InsertTimeout = def.InsertTimeout
	}

	return &AuditService{
		auditRepo:     auditRepo,
		logger:        logger,
		eventChan:     make(chan *models.AuditLog, config.BufferSize),
		workerCount:   config.WorkerCount,
		bufferSize:    config.BufferSize,
		insertTimeout: config.InsertTimeout,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop closes the queue and waits up to timeout for queued events to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.stopped = true
	pending := len(s.eventChan)
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an entry without blocking. A full buffer drops the entry.
func (s *AuditService) LogEvent(entry *models.AuditLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return ErrNotRunning
	}

	select {
	case s.eventChan <- entry:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(entry.Action)),
			zap.String("request_id", entry.RequestID))
		return ErrBufferFull
	}
}

// LogAuthEvent records one authentication event. userID may be nil for
// failed attempts against unknown accounts.
func (s *AuditService) LogAuthEvent(action models.AuditAction, email string, user *models.User, meta RequestMeta, details map[string]interface{}) error {
	entry := models.NewAuditLog(action, models.NormalizeEmail(email)).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	if user != nil {
		entry.WithUser(user.ID)
	}
	if len(details) > 0 {
		entry.WithDetails(details)
	}
	return s.LogEvent(entry)
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	for entry := range s.eventChan {
		if err := s.persist(entry); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(entry.Action)),
				zap.String("request_id", entry.RequestID))
		}
	}
}

func (s *AuditService) persist(entry *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.insertTimeout)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Running       bool
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Running:       s.started && !s.stopped,
	}
}
