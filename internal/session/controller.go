package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/internal/metrics"
	"github.com/kdimtricp/moviesearch/internal/models"
)

// Fetcher retrieves one page of catalog results.
type Fetcher interface {
	FetchPage(ctx context.Context, query string, page int) (*models.ResultPage, error)
}

// HistoryRecorder is told about every first page that resolves.
type HistoryRecorder interface {
	RecordSearch(ctx context.Context, query string, totalResults int) error
}

const historyTimeout = 5 * time.Second

// ErrNoPage is recorded when a fetcher returns neither a page nor an error.
var ErrNoPage = errors.New("fetcher returned no page")

// Controller drives a Machine. Transitions run under a single mutex; each
// ticket is fetched on its own goroutine and applied when it returns.
type Controller struct {
	mu      sync.Mutex
	machine *Machine
	changed chan struct{}
	cancel  context.CancelFunc

	fetcher Fetcher
	history HistoryRecorder
	logger  logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Controller)

func WithHistory(h HistoryRecorder) Option {
	return func(c *Controller) { c.history = h }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func NewController(fetcher Fetcher, policy Policy, trigger Trigger, opts ...Option) *Controller {
	c := &Controller{
		machine: NewMachine(policy, trigger),
		changed: make(chan struct{}),
		fetcher: fetcher,
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a new search. Any fetch still in flight is cancelled and its
// result, should it arrive anyway, is discarded. Reports whether a fetch was issued.
func (c *Controller) Submit(query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	t, ok := c.machine.Submit(query)
	c.notify()
	if !ok {
		return false
	}

	c.dispatch(t)
	return true
}

// RequestPage asks for the 1-based page n. Reports whether a fetch was issued.
func (c *Controller) RequestPage(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.machine.RequestPage(n)
	if !ok {
		return false
	}
	c.notify()
	c.dispatch(t)
	return true
}

// LoadMore handles a proximity signal. Repeated signals while a fetch is
// outstanding are ignored.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.machine.LoadMore()
	if !ok {
		return false
	}
	c.notify()
	c.dispatch(t)
	return true
}

func (c *Controller) Select(movieID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.SelectByID(movieID) {
		return false
	}
	c.notify()
	return true
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.ClearSelection()
	c.notify()
}

func (c *Controller) TakeNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.machine.TakeNotices()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.machine.Snapshot()
}

// Wait blocks until no fetch is outstanding or ctx is done, and returns the
// snapshot at that point together with ctx's error, if any.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		if c.machine.Status() != StatusLoading {
			s := c.machine.Snapshot()
			c.mu.Unlock()
			return s, nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close cancels any fetch in flight. The session stays readable.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// dispatch must be called with c.mu held.
func (c *Controller) dispatch(t Ticket) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.logger.Debug("Fetching page",
		logger.Uint64("seq", t.Seq),
		logger.String("query", t.Query),
		logger.Int("page", t.Page),
	)

	go func() {
		defer cancel()
		page, err := c.fetcher.FetchPage(ctx, t.Query, t.Page)
		c.complete(t, page, err)
	}()
}

func (c *Controller) complete(t Ticket, page *models.ResultPage, err error) {
	if err == nil && page == nil {
		err = ErrNoPage
	}

	c.mu.Lock()
	var applied bool
	if err != nil {
		applied = c.machine.Reject(t, err)
	} else {
		applied = c.machine.Resolve(t, page)
	}
	if applied {
		c.cancel = nil
		c.notify()
	}
	c.mu.Unlock()

	if !applied {
		c.metrics.StaleDropped()
		c.logger.Debug("Dropped stale fetch result",
			logger.Uint64("seq", t.Seq),
			logger.String("query", t.Query),
			logger.Int("page", t.Page),
		)
		return
	}

	if err != nil {
		c.logger.Warn("Catalog fetch failed",
			logger.String("query", t.Query),
			logger.Int("page", t.Page),
			logger.Error(err),
		)
		return
	}

	if t.Page == 1 && c.history != nil && page != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := c.history.RecordSearch(ctx, t.Query, page.TotalResults); err != nil {
			c.logger.Warn("Failed to record search", logger.String("query", t.Query), logger.Error(err))
		}
	}
}

// notify wakes Wait callers. Must be called with c.mu held.
func (c *Controller) notify() {
	close(c.changed)
	c.changed = make(chan struct{})
}
