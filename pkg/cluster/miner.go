package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/clusters"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// ErrMinerAlreadyRunning is returned when starting a running miner
	ErrMinerAlreadyRunning = errors.New("cluster miner already running")
)

const (
	// DefaultScanInterval is the default interval between mining runs
	DefaultScanInterval = 15 * time.Minute

	// DefaultLockTTL is the default TTL for the miner's distributed lock
	DefaultLockTTL = 5 * time.Minute

	// DefaultPageSize bounds each per-field scan pass
	DefaultPageSize = 500

	// DefaultCacheTTL is how long a mined result stays fresh
	DefaultCacheTTL = 30 * time.Minute

	// minerLockKey serializes mining runs across instances
	minerLockKey = "cluster-miner"

	// cacheKey holds the latest unscoped mining result
	cacheKey = "clover:clusters:latest"
)

// GroupScanner is the repository surface the miner needs.
type GroupScanner interface {
	FindIdentifierGroups(ctx context.Context, params clusters.ScanParams) ([]clusters.GroupRow, error)
}

// MinerConfig holds configuration for the background miner.
type MinerConfig struct {
	ScanInterval time.Duration
	LockTTL      time.Duration
	PageSize     int
	CacheTTL     time.Duration
}

// Miner periodically scans the case store for duplicate clusters and caches
// the result. Only one instance mines at a time; the rest skip the run when
// the lock is held.
type Miner struct {
	scanner GroupScanner
	cache   *redis.Client
	locker  *redis.Locker
	config  MinerConfig
	logger  ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewMiner creates a new cluster miner
func NewMiner(scanner GroupScanner, cache *redis.Client, locker *redis.Locker, config MinerConfig, logger ectologger.Logger) *Miner {
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultScanInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}

	return &Miner{
		scanner: scanner,
		cache:   cache,
		locker:  locker,
		config:  config,
		logger:  logger,
	}
}

// Start begins the mining loop. It returns once the loop goroutine is
// running; the loop stops when Stop is called or the context is cancelled.
func (m *Miner) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrMinerAlreadyRunning
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.stoppedC = make(chan struct{})
	m.mu.Unlock()

	go m.loop(ctx)
	return nil
}

// Stop stops the mining loop and waits for the current run to finish.
func (m *Miner) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	stopped := m.stoppedC
	m.mu.Unlock()

	<-stopped
}

func (m *Miner) loop(ctx context.Context) {
	defer close(m.stoppedC)

	ticker := time.NewTicker(m.config.ScanInterval)
	defer ticker.Stop()

	// run once on startup so the cache is warm
	m.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *Miner) runOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "cluster.Miner.runOnce")
	defer span.End()

	log := m.logger.WithContext(ctx)

	lock, err := m.locker.Acquire(ctx, minerLockKey, m.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			log.Debug("Cluster mining run skipped, lock held by another instance")
			return
		}
		log.WithError(err).Error("Failed to acquire cluster miner lock")
		return
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil && !errors.Is(releaseErr, redis.ErrLockNotHeld) {
			log.WithError(releaseErr).Warn("Failed to release cluster miner lock")
		}
	}()

	start := time.Now()

	rows, err := m.scanner.FindIdentifierGroups(ctx, clusters.ScanParams{PageSize: m.config.PageSize})
	if err != nil {
		log.WithError(err).Error("Cluster mining scan failed")
		metrics.RecordClusterScan(time.Since(start), false)
		return
	}

	result := BuildClusters(rows)
	metrics.RecordClusterScan(time.Since(start), true)

	data, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("Failed to marshal mined clusters")
		return
	}

	if err := m.cache.Set(ctx, cacheKey, data, m.config.CacheTTL); err != nil {
		log.WithError(err).Error("Failed to cache mined clusters")
		return
	}

	log.WithFields(map[string]any{
		"clusters": len(result),
		"duration": time.Since(start).String(),
	}).Info("Cluster mining run complete")
}

// CachedClusters returns the latest mined result, or ok=false when the cache
// is cold or unreadable.
func (m *Miner) CachedClusters(ctx context.Context) ([]models.DuplicateCluster, bool) {
	data, err := m.cache.Get(ctx, cacheKey)
	if err != nil {
		return nil, false
	}

	var result []models.DuplicateCluster
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to decode cached clusters")
		return nil, false
	}

	return result, true
}
