package batch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/dcshock/stagerun/pipeline"
)

// stepRunner builds a pipeline runner with a single stage around step.
func stepRunner(step pipeline.Step) *pipeline.Runner {
	defs := pipeline.DefinitionsFunc(func(string) []pipeline.StageDef {
		return []pipeline.StageDef{{ID: "work", Order: 1, Step: step}}
	})
	return pipeline.NewRunner(defs, nil, 0, 0, pipeline.HaltOnError)
}

func TestRunSeed_CopiesParamsWithoutBatchMarkers(t *testing.T) {
	ctx := context.Background()
	var sawName string
	var hadBatch, hadSeed bool
	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		sawName, _ = pipeline.As[string](run, "name")
		_, hadBatch = run.Get(pipeline.KeyBatch)
		_, hadSeed = run.Get(pipeline.KeySeed)
		return nil, nil
	}))

	run := pipeline.NewContext()
	if err := b.RunSeed(ctx, "p", run, map[string]any{"name": "solo"}); err != nil {
		t.Fatal(err)
	}
	if sawName != "solo" {
		t.Errorf("seed param: got %q", sawName)
	}
	if hadBatch || hadSeed {
		t.Error("seeded single run must not carry batch markers")
	}
}

func TestRunBatch_EachItemRunsOnceWithOwnContext(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	seen := map[string]string{} // seed key -> param value observed

	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		seed, err := pipeline.As[string](run, pipeline.KeySeed)
		if err != nil {
			return nil, err
		}
		if isBatch, err := pipeline.As[bool](run, pipeline.KeyBatch); err != nil || !isBatch {
			return nil, fmt.Errorf("batch marker missing: %v", err)
		}
		color, _ := pipeline.As[string](run, "color")
		mu.Lock()
		if _, dup := seen[seed]; dup {
			mu.Unlock()
			return nil, fmt.Errorf("item %q ran twice", seed)
		}
		seen[seed] = color
		mu.Unlock()
		return nil, nil
	}))

	items := SliceItems([]Item{
		{Key: "a", Params: map[string]any{"color": "red"}},
		{Key: "b", Params: map[string]any{"color": "blue"}},
	})
	opts := DefaultOptions()
	opts.MaxParallel = 2

	sum, err := b.RunBatch(ctx, "p", pipeline.NewContext, items, opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 2 || sum.Succeeded != 2 || sum.Failed != 0 {
		t.Errorf("summary: %+v", sum)
	}
	if sum.Outcome != pipeline.OutcomeSuccess {
		t.Errorf("outcome: got %v, want success", sum.Outcome)
	}
	if seen["a"] != "red" || seen["b"] != "blue" {
		t.Errorf("items saw wrong params: %v", seen)
	}
}

func TestRunBatch_StopOnFailure_DropsUnstartedAndSurfacesCause(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var mu sync.Mutex
	ran := map[string]int{}

	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		seed, _ := pipeline.As[string](run, pipeline.KeySeed)
		mu.Lock()
		ran[seed]++
		mu.Unlock()
		if seed == "bad" {
			return nil, boom
		}
		return nil, nil
	}))

	// Serial execution makes the drop deterministic: bad fails first, the
	// rest never start.
	items := SliceItems([]Item{
		{Key: "bad"}, {Key: "x"}, {Key: "y"}, {Key: "z"},
	})
	opts := Options{MaxParallel: 1, OnItemFailure: StopOnFailure}

	sum, err := b.RunBatch(ctx, "p", pipeline.NewContext, items, opts)
	if err == nil {
		t.Fatal("expected the failing item's error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause should be preserved in the chain, got %v", err)
	}
	if ran["bad"] != 1 {
		t.Errorf("bad ran %d times", ran["bad"])
	}
	if ran["x"]+ran["y"]+ran["z"] != 0 {
		t.Errorf("items after the failure should be dropped, ran: %v", ran)
	}
	if sum.Failed != 1 {
		t.Errorf("summary failed: got %d", sum.Failed)
	}
	if sum.Outcome != pipeline.OutcomeFailure {
		t.Errorf("outcome: got %v, want failure", sum.Outcome)
	}
	if !errors.Is(sum.Errors["bad"], boom) {
		t.Errorf("per-item error missing: %v", sum.Errors)
	}
}

func TestRunBatch_ContinueOnFailure_AttemptsEveryItem(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	ran := map[string]int{}

	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		seed, _ := pipeline.As[string](run, pipeline.KeySeed)
		mu.Lock()
		ran[seed]++
		mu.Unlock()
		if seed == "bad" {
			return nil, errors.New("boom")
		}
		return nil, nil
	}))

	items := SliceItems([]Item{
		{Key: "bad"}, {Key: "x"}, {Key: "y"}, {Key: "z"},
	})
	opts := Options{MaxParallel: 2, OnItemFailure: ContinueOnFailure}

	sum, err := b.RunBatch(ctx, "p", pipeline.NewContext, items, opts)
	if err != nil {
		t.Fatalf("continue policy should not return an error, got %v", err)
	}
	for _, key := range []string{"bad", "x", "y", "z"} {
		if ran[key] != 1 {
			t.Errorf("item %q ran %d times, want 1", key, ran[key])
		}
	}
	if sum.Total != 4 || sum.Succeeded != 3 || sum.Failed != 1 {
		t.Errorf("summary: %+v", sum)
	}
	if sum.Outcome != pipeline.OutcomePartial {
		t.Errorf("outcome: got %v, want partial", sum.Outcome)
	}
}

func TestRunBatch_AllFailedIsFailureOutcome(t *testing.T) {
	ctx := context.Background()
	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		return nil, errors.New("boom")
	}))
	sum, err := b.RunBatch(ctx, "p", pipeline.NewContext,
		SliceItems([]Item{{Key: "a"}, {Key: "b"}}),
		Options{MaxParallel: 2, OnItemFailure: ContinueOnFailure})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Outcome != pipeline.OutcomeFailure || sum.Failed != 2 {
		t.Errorf("summary: %+v", sum)
	}
}

func TestRunBatch_EmptyBatch(t *testing.T) {
	ctx := context.Background()
	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		return nil, nil
	}))
	sum, err := b.RunBatch(ctx, "p", pipeline.NewContext, SliceItems(nil), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 0 || sum.Outcome != pipeline.OutcomeSuccess {
		t.Errorf("summary: %+v", sum)
	}
}

func TestRunBatch_RespectsParallelismLimit(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	inFlight, peak := 0, 0

	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}))

	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{Key: fmt.Sprintf("i%d", i)}
	}
	opts := Options{MaxParallel: 2, OnItemFailure: ContinueOnFailure}
	if _, err := b.RunBatch(ctx, "p", pipeline.NewContext, SliceItems(items), opts); err != nil {
		t.Fatal(err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", peak)
	}
}

type sliceSupplier struct {
	items []Item
	err   error
	got   map[string]any
}

func (s *sliceSupplier) Items(ctx context.Context, runParams map[string]any) (iter.Seq[Item], error) {
	s.got = runParams
	if s.err != nil {
		return nil, s.err
	}
	return SliceItems(s.items), nil
}

func TestRunSupplied(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	count := 0
	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return nil, nil
	}))

	sup := &sliceSupplier{items: []Item{{Key: "a"}, {Key: "b"}}}
	sum, err := b.RunSupplied(ctx, "p", pipeline.NewContext, sup, map[string]any{"region": "us"}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 || sum.Succeeded != 2 {
		t.Errorf("count=%d summary=%+v", count, sum)
	}
	if sup.got["region"] != "us" {
		t.Errorf("supplier should receive the run params, got %v", sup.got)
	}
}

func TestRunSupplied_SupplierError(t *testing.T) {
	ctx := context.Background()
	b := NewRunner(stepRunner(func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		return nil, nil
	}))
	sup := &sliceSupplier{err: errors.New("listing failed")}
	if _, err := b.RunSupplied(ctx, "p", pipeline.NewContext, sup, nil, DefaultOptions()); err == nil {
		t.Fatal("expected the supplier's error")
	}
}
