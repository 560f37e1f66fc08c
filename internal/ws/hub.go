package ws

import (
	"context"
	"sync"
	"time"

	"stickman_shake/internal/logger"
	"stickman_shake/internal/service"
	"stickman_shake/internal/store"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	sweepInterval     = time.Minute
	defaultStaleAfter = 2 * pongWait
)

type HubConfig struct {
	Engine *service.Engine
	Store  store.Store
	Ensure service.EnsureFunc
	Clock  clockwork.Clock
	// Stats, if set, refreshes the player gauges on the sweep schedule.
	Stats *service.StatsService
	// StaleAfter closes connections with no inbound traffic (pongs included) for this long.
	StaleAfter time.Duration
}

// Hub tracks open connections and owns their lifetime.
type Hub struct {
	cfg   HubConfig
	clock clockwork.Clock

	mu      sync.RWMutex
	clients map[*Client]struct{}

	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:     cfg,
		clock:   cfg.Clock,
		clients: make(map[*Client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start schedules the periodic sweep.
func (h *Hub) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithClock(h.clock))
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(h.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	if h.cfg.Stats != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(h.reportStats),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
	}
	sched.Start()
	h.sched = sched
	return nil
}

// Stop closes every connection and waits for the sessions to finish.
func (h *Hub) Stop() {
	if h.sched != nil {
		if err := h.sched.Shutdown(); err != nil {
			logger.Warn("ws: scheduler shutdown", "error", err)
		}
	}
	h.cancel()
	h.wg.Wait()
}

// Serve takes ownership of conn and runs it in the background.
func (h *Hub) Serve(conn *websocket.Conn, id *service.Identity) *Client {
	session := service.NewSession(service.SessionConfig{
		Engine: h.cfg.Engine,
		Store:  h.cfg.Store,
		Ensure: h.cfg.Ensure,
		Clock:  h.clock,
	})
	c := newClient(h, conn, session)
	h.register(c)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.unregister(c)
		if err := c.Run(h.ctx, id); err != nil {
			logger.Warn("ws: client ended with error", "client", c.ID, "error", err)
		}
	}()
	return c
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	Connections.Set(float64(n))
	logger.Debug("ws: client connected", "client", c.ID, "total", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	Connections.Set(float64(n))
	_ = c.Conn.Close()
	logger.Debug("ws: client disconnected", "client", c.ID, "total", n)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sweep closes connections that went quiet; their pumps exit on the closed socket.
func (h *Hub) sweep() {
	now := h.clock.Now()

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		if c.idleFor(now) > h.cfg.StaleAfter {
			stale = append(stale, c)
		}
	}
	n := len(h.clients)
	h.mu.RUnlock()

	Connections.Set(float64(n))
	for _, c := range stale {
		logger.Info("ws: closing stale client", "client", c.ID, "idle", c.idleFor(now))
		_ = c.Conn.Close()
	}
}

func (h *Hub) reportStats() {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()
	if _, err := h.cfg.Stats.GetStats(ctx); err != nil {
		logger.Warn("ws: stats refresh failed", "error", err)
	}
}
