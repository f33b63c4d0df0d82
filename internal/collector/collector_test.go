package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

type fakeSource struct {
	mu      sync.Mutex
	repos   map[string][]inventory.RawRepository
	fail    map[string]error
	delay   time.Duration
	calls   []string
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeSource) Collect(ctx context.Context, org string) ([]inventory.RawRepository, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, org)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[org]; err != nil {
		return nil, err
	}
	return f.repos[org], nil
}

func quietLog() *runlog.Log {
	return runlog.New(runlog.WithLogger(logging.NewNopLogger()))
}

func TestCollectIsolatesFailures(t *testing.T) {
	src := &fakeSource{
		repos: map[string][]inventory.RawRepository{
			"cdcgov":  {{Host: "github", Organization: "cdcgov", Name: "a"}},
			"cdcent":  {{Host: "github", Organization: "cdcent", Name: "b"}, {Host: "github", Organization: "cdcent", Name: "c"}},
			"broken":  nil,
			"another": {},
		},
		fail: map[string]error{"broken": errors.New("403 forbidden")},
	}
	log := quietLog()
	c, err := New(src, WithRunLog(log), WithConcurrency(2))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), []string{"cdcgov", "broken", "cdcent", "CDCGOV", " ", "another"})
	require.NoError(t, err)

	assert.Equal(t, []string{"another", "cdcent", "cdcgov"}, res.Organizations())
	assert.Len(t, res.All(), 3)
	assert.Equal(t, "cdcent", res.All()[0].Organization)
	require.Contains(t, res.Failed, "broken")
	assert.Contains(t, res.Failed["broken"].Error(), "403 forbidden")
	assert.Len(t, src.calls, 4, "duplicate and blank organizations are skipped")

	entries := log.Filter(runlog.KindCollection)
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].Organization)
	assert.Equal(t, runlog.SeverityError, entries[0].Severity)
}

func TestCollectRespectsConcurrency(t *testing.T) {
	repos := map[string][]inventory.RawRepository{}
	orgs := []string{"a", "b", "c", "d", "e", "f"}
	for _, org := range orgs {
		repos[org] = []inventory.RawRepository{{Organization: org, Name: "x"}}
	}
	src := &fakeSource{repos: repos, delay: 20 * time.Millisecond}

	c, err := New(src, WithRunLog(quietLog()), WithConcurrency(2))
	require.NoError(t, err)
	res, err := c.Collect(context.Background(), orgs)
	require.NoError(t, err)

	assert.Len(t, res.Repositories, len(orgs))
	assert.LessOrEqual(t, src.maxSeen.Load(), int32(2))
}

func TestCollectTimeout(t *testing.T) {
	src := &fakeSource{repos: map[string][]inventory.RawRepository{"slow": {}}, delay: time.Second}
	log := quietLog()
	c, err := New(src, WithRunLog(log), WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), []string{"slow"})
	require.NoError(t, err)
	require.Contains(t, res.Failed, "slow")
	assert.ErrorIs(t, res.Failed["slow"], context.DeadlineExceeded)
}

func TestCollectCancelled(t *testing.T) {
	src := &fakeSource{repos: map[string][]inventory.RawRepository{"a": {}}, delay: time.Second}
	c, err := New(src, WithRunLog(quietLog()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Collect(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectSink(t *testing.T) {
	src := &fakeSource{repos: map[string][]inventory.RawRepository{
		"ok":   {{Name: "a"}},
		"full": {{Name: "b"}},
	}}
	log := quietLog()
	var mu sync.Mutex
	written := map[string]int{}
	sink := func(org string, raws []inventory.RawRepository) error {
		if org == "full" {
			return errors.New("disk full")
		}
		mu.Lock()
		defer mu.Unlock()
		written[org] = len(raws)
		return nil
	}

	c, err := New(src, WithRunLog(log), WithSink(sink))
	require.NoError(t, err)
	res, err := c.Collect(context.Background(), []string{"ok", "full"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"ok": 1}, written)
	assert.Contains(t, res.Failed, "full")
	assert.Len(t, log.Filter(runlog.KindCollection), 1)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&fakeSource{}, WithConcurrency(0))
	assert.Error(t, err)

	_, err = New(&fakeSource{}, WithTimeout(0))
	assert.Error(t, err)
}

type loggingSource struct{}

func (loggingSource) Collect(ctx context.Context, org string) ([]inventory.RawRepository, error) {
	runlog.FromContext(ctx).Add(runlog.Entry{
		Severity:     runlog.SeverityError,
		Kind:         runlog.KindCollection,
		Organization: org,
		Repository:   org + "/bad",
		Message:      "409 conflict",
	})
	return []inventory.RawRepository{{Host: "github", Organization: org, Name: "good"}}, nil
}

func TestCollectPassesRunLogToSource(t *testing.T) {
	log := quietLog()
	c, err := New(loggingSource{}, WithRunLog(log))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), []string{"cdcgov"})
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	assert.Len(t, res.All(), 1)

	entries := log.Filter(runlog.KindCollection)
	require.Len(t, entries, 1)
	assert.Equal(t, "cdcgov/bad", entries[0].Repository)
}
