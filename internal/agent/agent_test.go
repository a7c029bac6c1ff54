package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/rotation"
	"github.com/leadharvest/buyerscout/internal/storage/memory"
)

type stubRunner struct {
	mu      sync.Mutex
	results []buyer.Candidate
	err     error
	block   chan struct{}
	calls   int
	targets []string
}

func (r *stubRunner) Run(_ context.Context, term, city string, _ int) ([]buyer.Candidate, error) {
	r.mu.Lock()
	r.calls++
	r.targets = append(r.targets, term+"/"+city)
	block := r.block
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return r.results, r.err
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newScheduler(t *testing.T) *rotation.Scheduler {
	t.Helper()
	sched, err := rotation.New(
		[]string{"scrap battery buyers", "battery recycling"},
		[]string{"Detroit", "Chicago", "Houston"},
	)
	require.NoError(t, err)
	return sched
}

func TestRunCycleStoresFindings(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{results: []buyer.Candidate{
		{CompanyName: "Motor City Battery Exchange", Phone: "(313) 555-0142"},
	}}
	store := memory.NewBuyerStore(nil)
	agent := New(Config{TargetPerCycle: 5, Interval: time.Hour}, newScheduler(t), runner, store, nil)

	agent.RunCycle(context.Background())

	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Detroit", all[0].City)
	require.Equal(t, []string{"scrap battery buyers/Detroit"}, runner.targets)
}

func TestRunCycleRerunStoresNothingNew(t *testing.T) {
	t.Parallel()

	// Every cycle rediscovers the same buyer; only the first one lands.
	runner := &stubRunner{results: []buyer.Candidate{
		{CompanyName: "Motor City Battery Exchange", Phone: "(313) 555-0142", Address: "100 Gratiot Ave"},
	}}
	store := memory.NewBuyerStore(nil)
	agent := New(Config{}, newScheduler(t), runner, store, nil)

	agent.RunCycle(context.Background())
	agent.RunCycle(context.Background())

	require.Equal(t, 2, runner.callCount())
	all, err := store.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRunCycleAdvancesRotationOnFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{err: fmt.Errorf("every source down")}
	sched := newScheduler(t)
	agent := New(Config{}, sched, runner, memory.NewBuyerStore(nil), nil)

	agent.RunCycle(context.Background())
	agent.RunCycle(context.Background())

	termIdx, cityIdx := sched.Indices()
	require.Equal(t, 0, termIdx, "two advances wrap a two-term list")
	require.Equal(t, 2, cityIdx)
	require.Equal(t, []string{"scrap battery buyers/Detroit", "battery recycling/Chicago"}, runner.targets)
}

func TestRunCycleSkipsWhenPreviousStillRunning(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	runner := &stubRunner{block: block}
	agent := New(Config{}, newScheduler(t), runner, memory.NewBuyerStore(nil), nil)

	done := make(chan struct{})
	go func() {
		agent.RunCycle(context.Background())
		close(done)
	}()

	// Wait for the first cycle to take the lock.
	require.Eventually(t, func() bool { return runner.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	agent.RunCycle(context.Background())
	require.Equal(t, 1, runner.callCount(), "overlapping cycle must be skipped")

	close(block)
	<-done
}

func TestRunLoopRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	agent := New(Config{Interval: time.Hour}, newScheduler(t), runner, memory.NewBuyerStore(nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agent.Run(ctx)
		close(done)
	}()

	// The first cycle fires before any tick elapses.
	require.Eventually(t, func() bool { return runner.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
