package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/moviesearch/internal/metrics"
	"github.com/kdimtricp/moviesearch/internal/models"
)

type fetchReply struct {
	page *models.ResultPage
	err  error
}

type fetchCall struct {
	ctx   context.Context
	query string
	page  int
	reply chan fetchReply
}

// fakeFetcher blocks every call until the test answers it.
type fakeFetcher struct {
	calls chan *fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *fetchCall, 16)}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, query string, page int) (*models.ResultPage, error) {
	call := &fetchCall{ctx: ctx, query: query, page: page, reply: make(chan fetchReply, 1)}
	f.calls <- call
	r := <-call.reply
	return r.page, r.err
}

func (f *fakeFetcher) next(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fetch call")
		return nil
	}
}

func (f *fakeFetcher) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch for %q page %d", c.query, c.page)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordedSearch struct {
	query string
	total int
}

type fakeHistory struct {
	mu       sync.Mutex
	searches []recordedSearch
}

func (h *fakeHistory) RecordSearch(_ context.Context, query string, totalResults int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.searches = append(h.searches, recordedSearch{query: query, total: totalResults})
	return nil
}

func (h *fakeHistory) recorded() []recordedSearch {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedSearch(nil), h.searches...)
}

func waitSettled(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := c.Wait(ctx)
	require.NoError(t, err)
	return s
}

func TestController_SubmitAndResolve(t *testing.T) {
	f := newFakeFetcher()
	h := &fakeHistory{}
	c := NewController(f, PolicyReplace, TriggerExplicitControl, WithHistory(h))

	require.True(t, c.Submit("batman"))
	assert.True(t, c.Snapshot().Loading())

	call := f.next(t)
	assert.Equal(t, "batman", call.query)
	assert.Equal(t, 1, call.page)
	call.reply <- fetchReply{page: moviePage(1, 20, 5)}

	s := waitSettled(t, c)
	assert.Equal(t, StatusLoaded, s.Status)
	assert.Len(t, s.Results, 20)
	assert.Equal(t, 5, s.TotalPages)
	assert.Equal(t, 1, s.CurrentPage)

	assert.Eventually(t, func() bool {
		return len(h.recorded()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, recordedSearch{query: "batman", total: 100}, h.recorded()[0])
}

func TestController_EmptyQueryIssuesNothing(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	assert.False(t, c.Submit("   "))
	f.assertNoCall(t)
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestController_NoResultsNoticeOnce(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("zzzqqqnomatch")
	f.next(t).reply <- fetchReply{page: &models.ResultPage{PageNumber: 1}}

	s := waitSettled(t, c)
	assert.Equal(t, StatusEmpty, s.Status)
	assert.False(t, s.ShowPaginator())
	assert.Equal(t, []Notice{NoticeNoResults}, c.TakeNotices())
	assert.Empty(t, c.TakeNotices())
}

func TestController_FailureThenResubmit(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	f.next(t).reply <- fetchReply{err: errors.New("connection refused")}

	s := waitSettled(t, c)
	assert.Equal(t, StatusFailed, s.Status)
	assert.NotEmpty(t, s.Error)

	require.True(t, c.Submit("batman"))
	assert.Equal(t, StatusLoading, c.Snapshot().Status)
	f.next(t).reply <- fetchReply{page: moviePage(1, 20, 5)}

	assert.Equal(t, StatusLoaded, waitSettled(t, c).Status)
}

func TestController_StaleSubmitIsDropped(t *testing.T) {
	f := newFakeFetcher()
	m := metrics.New()
	c := NewController(f, PolicyReplace, TriggerExplicitControl, WithMetrics(m))

	c.Submit("batman")
	first := f.next(t)

	c.Submit("superman")
	second := f.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("superseded fetch should be cancelled")
	}

	second.reply <- fetchReply{page: moviePage(1, 2, 1)}
	waitSettled(t, c)

	first.reply <- fetchReply{page: moviePage(1, 20, 5)}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StaleResponses) == 1
	}, time.Second, 10*time.Millisecond)

	s := c.Snapshot()
	assert.Equal(t, "superman", s.Query)
	assert.Len(t, s.Results, 2)
	assert.Equal(t, 1, s.TotalPages)
}

func TestController_StaleArrivingWhileNewestLoading(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	first := f.next(t)
	c.Submit("superman")
	second := f.next(t)

	first.reply <- fetchReply{page: moviePage(1, 20, 5)}
	time.Sleep(20 * time.Millisecond)

	s := c.Snapshot()
	assert.Equal(t, StatusLoading, s.Status)
	assert.Equal(t, "superman", s.Query)
	assert.Empty(t, s.Results)

	second.reply <- fetchReply{err: errors.New("boom")}
	assert.Equal(t, StatusFailed, waitSettled(t, c).Status)
}

func TestController_LoadMoreIssuesAtMostOne(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyAppend, TriggerScrollProximity)

	c.Submit("batman")
	f.next(t).reply <- fetchReply{page: moviePage(1, 20, 3)}
	waitSettled(t, c)

	var wg sync.WaitGroup
	var mu sync.Mutex
	issued := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.LoadMore() {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, issued)

	call := f.next(t)
	assert.Equal(t, 2, call.page)
	f.assertNoCall(t)

	call.reply <- fetchReply{page: moviePage(2, 20, 3)}
	s := waitSettled(t, c)
	assert.Len(t, s.Results, 40)
	assert.Equal(t, 2, s.CurrentPage)
}

func TestController_RequestPage(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	f.next(t).reply <- fetchReply{page: moviePage(1, 20, 5)}
	waitSettled(t, c)

	assert.False(t, c.RequestPage(1))
	assert.False(t, c.RequestPage(6))
	f.assertNoCall(t)

	require.True(t, c.RequestPage(4))
	assert.False(t, c.RequestPage(3), "ignored while loading")

	call := f.next(t)
	assert.Equal(t, "batman", call.query)
	assert.Equal(t, 4, call.page)
	call.reply <- fetchReply{page: moviePage(4, 20, 5)}

	s := waitSettled(t, c)
	assert.Equal(t, 4, s.CurrentPage)
	assert.Equal(t, 400, s.Results[0].ID)
}

func TestController_Selection(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	f.next(t).reply <- fetchReply{page: moviePage(1, 3, 1)}
	waitSettled(t, c)

	assert.True(t, c.Select(101))
	require.NotNil(t, c.Snapshot().Selected)
	assert.False(t, c.Select(42))

	c.ClearSelection()
	assert.Nil(t, c.Snapshot().Selected)

	c.Select(100)
	c.Submit("superman")
	assert.Nil(t, c.Snapshot().Selected, "submit clears the selection")
}

func TestController_WaitHonoursContext(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	call := f.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.Loading())

	call.reply <- fetchReply{page: moviePage(1, 1, 1)}
	assert.Equal(t, StatusLoaded, waitSettled(t, c).Status)
}

func TestController_CloseCancelsInFlight(t *testing.T) {
	f := newFakeFetcher()
	c := NewController(f, PolicyReplace, TriggerExplicitControl)

	c.Submit("batman")
	call := f.next(t)
	c.Close()

	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("close should cancel the fetch context")
	}
	call.reply <- fetchReply{err: call.ctx.Err()}
	assert.Equal(t, StatusFailed, waitSettled(t, c).Status)
}

func TestController_NilPageFails(t *testing.T) {
	f := newFakeFetcher()
	m := metrics.New()
	c := NewController(f, PolicyReplace, TriggerExplicitControl, WithMetrics(m))

	c.Submit("batman")
	f.next(t).reply <- fetchReply{}

	s := waitSettled(t, c)
	assert.Equal(t, StatusFailed, s.Status)
	assert.NotEmpty(t, s.Error)
	assert.Zero(t, testutil.ToFloat64(m.StaleResponses), "a nil page is not a stale response")
}
