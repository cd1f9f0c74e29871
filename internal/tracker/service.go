package tracker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/handoff-board/internal/classify"
	"github.com/yegors/handoff-board/internal/websocket"
	"github.com/yegors/handoff-board/pkg/logger"
)

// Fetcher supplies one batch of aircraft samples per cycle
type Fetcher interface {
	Fetch(ctx context.Context) ([]classify.Sample, error)
}

// Processor turns a batch of samples into the two ranked lists
type Processor interface {
	Process(samples []classify.Sample, now time.Time) classify.Result
}

// Broadcaster pushes messages to every connected viewer
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Snapshot is the published result of one completed cycle. It is never modified after it has
// been stored.
type Snapshot struct {
	Cycle       uint64           `json:"cycle"`
	GeneratedAt time.Time        `json:"generated_at"`
	Inbound     []classify.Track `json:"inbound"`
	Outbound    []classify.Track `json:"outbound"`
	Processed   int              `json:"processed"`
	Dropped     map[string]int   `json:"dropped"`
}

// Status reports the health of the feed cycle
type Status struct {
	LastFetchTime   time.Time      `json:"last_fetch_time"`
	LastFetchStatus bool           `json:"last_fetch_status"`
	Cycle           uint64         `json:"cycle"`
	SkippedTicks    uint64         `json:"skipped_ticks"`
	InboundCount    int            `json:"inbound_count"`
	OutboundCount   int            `json:"outbound_count"`
	Dropped         map[string]int `json:"dropped"`
	Annotated       int            `json:"annotated"`
}

// Service runs the fetch-classify-publish cycle and owns the published state
type Service struct {
	fetcher       Fetcher
	engine        Processor
	wsServer      Broadcaster
	boundaries    any // GeoJSON sent to new viewers
	fetchInterval time.Duration
	now           func() time.Time
	logger        *logger.Logger

	snapshot     atomic.Pointer[Snapshot]
	cycleMu      sync.Mutex // held for the duration of a cycle
	cycles       atomic.Uint64
	skippedTicks atomic.Uint64
	annotations  *Annotations

	lastFetchTime   time.Time
	lastFetchStatus bool
	mu              sync.RWMutex
	stopCh          chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewService creates a new tracker service
func NewService(
	fetcher Fetcher,
	engine Processor,
	wsServer Broadcaster,
	boundaries any,
	fetchInterval time.Duration,
	log *logger.Logger,
) *Service {
	s := &Service{
		fetcher:       fetcher,
		engine:        engine,
		wsServer:      wsServer,
		boundaries:    boundaries,
		fetchInterval: fetchInterval,
		now:           time.Now,
		logger:        log.Named("tracker"),
		annotations:   NewAnnotations(),
		stopCh:        make(chan struct{}),
	}
	s.snapshot.Store(&Snapshot{
		Inbound:  []classify.Track{},
		Outbound: []classify.Track{},
		Dropped:  map[string]int{},
	})
	return s
}

// Start runs one cycle immediately and then one per fetch interval until Stop or ctx is done
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting tracker service",
		logger.Duration("fetch_interval", s.fetchInterval),
	)

	s.runCycle(ctx)

	s.wg.Add(1)
	go s.fetchLoop(ctx)

	return nil
}

// Stop stops the tracker service and waits for an in-flight cycle to finish
func (s *Service) Stop() {
	s.logger.Info("Stopping tracker service")
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("Tracker service stopped")
}

// fetchLoop periodically triggers a cycle. Ticks are handled on their own goroutine so a slow
// fetch never delays the ticker; a tick that finds a cycle still running is skipped.
func (s *Service) fetchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.fetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.runCycle(ctx)
			}()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle performs one fetch-classify-publish cycle. It returns false when the cycle was skipped
// because another one was in flight.
func (s *Service) runCycle(ctx context.Context) bool {
	if !s.cycleMu.TryLock() {
		s.skippedTicks.Add(1)
		s.logger.Warn("Previous cycle still running, skipping tick")
		return false
	}
	defer s.cycleMu.Unlock()

	if err := s.fetchAndProcess(ctx); err != nil {
		s.logger.Error("Failed to fetch feed", logger.Error(err))
		s.setFetchStatus(false)
	} else {
		s.setFetchStatus(true)
	}
	return true
}

// fetchAndProcess fetches a batch, classifies it and publishes the new snapshot. On error the
// previous snapshot stays published.
func (s *Service) fetchAndProcess(ctx context.Context) error {
	started := s.now()

	samples, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	s.setLastFetchTime(started)

	now := s.now()
	res := s.engine.Process(samples, now)

	snap := &Snapshot{
		Cycle:       s.cycles.Add(1),
		GeneratedAt: now,
		Inbound:     res.Inbound,
		Outbound:    res.Outbound,
		Processed:   res.Processed,
		Dropped:     res.Dropped,
	}
	s.snapshot.Store(snap)

	s.logger.Info("Cycle complete",
		logger.Int64("cycle", int64(snap.Cycle)),
		logger.Int("samples", res.Processed),
		logger.Int("inbound", len(snap.Inbound)),
		logger.Int("outbound", len(snap.Outbound)),
		logger.Duration("elapsed", time.Since(started)),
	)
	s.logger.Debug("Cycle lists",
		logger.Strings("inbound", summarize(snap.Inbound)),
		logger.Strings("outbound", summarize(snap.Outbound)),
		logger.Any("dropped", snap.Dropped),
	)

	if s.wsServer != nil {
		s.wsServer.Broadcast(inboundMessage(snap))
		s.wsServer.Broadcast(outboundMessage(snap))
	}

	return nil
}

// Snapshot returns the latest completed snapshot
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Boundaries returns the region GeoJSON replayed to new viewers
func (s *Service) Boundaries() any {
	return s.boundaries
}

// Annotations returns a copy of the operator annotation mapping
func (s *Service) Annotations() any {
	return s.annotations.Snapshot()
}

// UpdateAnnotation merges one field edit and rebroadcasts the whole mapping
func (s *Service) UpdateAnnotation(id, field string, value any) error {
	if err := s.annotations.Set(id, field, value); err != nil {
		return err
	}

	s.logger.Debug("Annotation updated",
		logger.String("id", id),
		logger.String("field", field),
	)

	if s.wsServer != nil {
		s.wsServer.Broadcast(s.annotationsMessage())
	}
	return nil
}

// GetStatus returns the service status
func (s *Service) GetStatus() Status {
	s.mu.RLock()
	lastFetch, ok := s.lastFetchTime, s.lastFetchStatus
	s.mu.RUnlock()

	snap := s.Snapshot()
	return Status{
		LastFetchTime:   lastFetch,
		LastFetchStatus: ok,
		Cycle:           snap.Cycle,
		SkippedTicks:    s.skippedTicks.Load(),
		InboundCount:    len(snap.Inbound),
		OutboundCount:   len(snap.Outbound),
		Dropped:         snap.Dropped,
		Annotated:       s.annotations.Len(),
	}
}

// setLastFetchTime sets the last fetch time
func (s *Service) setLastFetchTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchTime = t
}

// setFetchStatus sets the fetch status
func (s *Service) setFetchStatus(status bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchStatus = status
}

func summarize(tracks []classify.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.Callsign+" "+t.CenterEstimate)
	}
	return out
}
