// Package api implements the DET service: the save-record hook, trigger
// syntax checks and settings management. Transports (gRPC, CLI) are thin
// adapters over Service.
package api

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/core/metrics"
	"github.com/bcchr/detbuilder/internal/core/store"
	"github.com/bcchr/detbuilder/internal/routing"
)

// Service orchestrates the store, the router and the audit log.
type Service struct {
	store   *store.Store
	router  *routing.Router
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     *config.ServiceConfig

	auditDir     string
	jsonlMutexes map[string]*sync.Mutex
	mutexLock    sync.Mutex
	now          func() time.Time
}

// NewService creates the service. metrics may be nil. When cfg.DataDir is
// set, audit entries are mirrored to daily JSONL files under
// <data_dir>/audit, which is created if missing.
func NewService(st *store.Store, router *routing.Router, m *metrics.Metrics, logger *slog.Logger, cfg *config.ServiceConfig) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	var auditDir string
	if cfg.DataDir != "" {
		auditDir = filepath.Join(cfg.DataDir, "audit")
		if err := os.MkdirAll(auditDir, 0755); err != nil {
			return nil, err
		}
	}

	if m != nil {
		router.SetObserver(m)
	}

	return &Service{
		store:        st,
		router:       router,
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
		auditDir:     auditDir,
		jsonlMutexes: make(map[string]*sync.Mutex),
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Store returns the backing store.
func (s *Service) Store() *store.Store {
	return s.store
}

// getJSONLMutex returns the mutex guarding appends to filename.
// The map grows by one entry per day.
func (s *Service) getJSONLMutex(filename string) *sync.Mutex {
	s.mutexLock.Lock()
	defer s.mutexLock.Unlock()

	if _, ok := s.jsonlMutexes[filename]; !ok {
		s.jsonlMutexes[filename] = &sync.Mutex{}
	}
	return s.jsonlMutexes[filename]
}
