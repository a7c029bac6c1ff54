package cascade

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
)

type stubAdapter struct {
	name    string
	results []buyer.Candidate
	err     error
	calls   int
}

func (a *stubAdapter) Name() string                 { return a.name }
func (a *stubAdapter) SourceType() buyer.SourceType { return buyer.SourceDirectoryListing }

func (a *stubAdapter) Discover(context.Context, string, string) ([]buyer.Candidate, error) {
	a.calls++
	return a.results, a.err
}

type recordingDelayer struct {
	kinds []ratelimit.Kind
	err   error
}

func (d *recordingDelayer) Delay(_ context.Context, kind ratelimit.Kind) error {
	d.kinds = append(d.kinds, kind)
	return d.err
}

func candidates(prefix string, n int) []buyer.Candidate {
	out := make([]buyer.Candidate, n)
	for i := range out {
		out[i] = buyer.Candidate{
			CompanyName: fmt.Sprintf("%s Battery Co %d", prefix, i),
			Phone:       fmt.Sprintf("(555) 010-%04d", i),
		}
	}
	return out
}

func TestRunShortCircuitsAtTarget(t *testing.T) {
	t.Parallel()

	first := &stubAdapter{name: "first", results: candidates("first", 5)}
	second := &stubAdapter{name: "second", results: candidates("second", 5)}
	c := New([]buyer.Adapter{first, second}, &recordingDelayer{}, nil)

	got, err := c.Run(context.Background(), "scrap battery buyers", "Detroit", 3)
	require.NoError(t, err)
	require.Len(t, got, 5, "a source's batch is never truncated to the target")
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls, "target met, later sources must not run")
}

func TestRunKeepsOvershootingBatch(t *testing.T) {
	t.Parallel()

	// 3 + 4 crosses a target of 5 mid-batch; the whole second batch is kept
	// and the third source never fires.
	first := &stubAdapter{name: "first", results: candidates("first", 3)}
	second := &stubAdapter{name: "second", results: candidates("second", 4)}
	third := &stubAdapter{name: "third", results: candidates("third", 10)}
	c := New([]buyer.Adapter{first, second, third}, &recordingDelayer{}, nil)

	got, err := c.Run(context.Background(), "battery core buyers", "Houston", 5)
	require.NoError(t, err)
	require.Len(t, got, 7)
	require.Zero(t, third.calls)
}

func TestRunCascadesUntilTarget(t *testing.T) {
	t.Parallel()

	first := &stubAdapter{name: "first", results: candidates("first", 2)}
	second := &stubAdapter{name: "second", results: candidates("second", 2)}
	third := &stubAdapter{name: "third", results: candidates("third", 2)}
	delay := &recordingDelayer{}
	c := New([]buyer.Adapter{first, second, third}, delay, nil)

	got, err := c.Run(context.Background(), "battery recycling", "Chicago", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Zero(t, third.calls)
	require.Equal(t, []ratelimit.Kind{ratelimit.KindBetweenSources}, delay.kinds)
}

func TestRunSurvivesAdapterFailure(t *testing.T) {
	t.Parallel()

	broken := &stubAdapter{name: "broken", err: fmt.Errorf("blocked")}
	working := &stubAdapter{name: "working", results: candidates("working", 2)}
	delay := &recordingDelayer{}
	c := New([]buyer.Adapter{broken, working}, delay, nil)

	got, err := c.Run(context.Background(), "lead acid batteries", "Houston", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "working Battery Co 0", got[0].CompanyName)
	// The failure triggers a backoff before the next source fires.
	require.Equal(t, []ratelimit.Kind{ratelimit.KindErrorBackoff, ratelimit.KindBetweenSources}, delay.kinds)
}

func TestRunDropsInvalidCandidates(t *testing.T) {
	t.Parallel()

	mixed := &stubAdapter{name: "mixed", results: []buyer.Candidate{
		{CompanyName: "Nameworthy Battery Buyers", Phone: "(555) 123-4567"},
		{CompanyName: "No Contact Info Inc"},
		{Phone: "(555) 765-4321"},
	}}
	c := New([]buyer.Adapter{mixed}, &recordingDelayer{}, nil)

	got, err := c.Run(context.Background(), "battery", "", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	first := &stubAdapter{name: "first", results: candidates("first", 1)}
	second := &stubAdapter{name: "second", results: candidates("second", 1)}
	delay := &recordingDelayer{err: context.Canceled}
	c := New([]buyer.Adapter{first, second}, delay, nil)

	got, err := c.Run(context.Background(), "battery", "", 5)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 1, "partial results survive cancellation")
	require.Zero(t, second.calls)
}

func TestRunExhaustedSourcesReturnsPartial(t *testing.T) {
	t.Parallel()

	only := &stubAdapter{name: "only", results: candidates("only", 2)}
	c := New([]buyer.Adapter{only}, &recordingDelayer{}, nil)

	got, err := c.Run(context.Background(), "battery", "", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
