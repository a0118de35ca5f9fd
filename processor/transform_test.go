package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MasterOfBinary/batchlist/batch"
)

type page = batch.Batch[int, []string]

func upper(_ context.Context, data []string, suffix string) ([]string, error) {
	out := make([]string, len(data))
	for i, s := range data {
		if s == "bad" {
			return nil, errors.New("bad item")
		}
		out[i] = strings.ToUpper(s) + suffix
	}
	return out, nil
}

func TestTransform_FetchUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("transforms data successfully", func(t *testing.T) {
		p := &Transform[int, []string, string]{Func: upper}

		result, err := p.FetchUpdate(ctx, []page{{Key: 1, Data: []string{"a", "b"}}, {Key: 2, Data: []string{"c"}}}, "!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result) != 2 {
			t.Fatalf("expected 2 batches, got %d", len(result))
		}
		if got := strings.Join(result[0].Data, ","); got != "A!,B!" || result[0].Key != 1 {
			t.Errorf("batch 0: got %v %q", result[0].Key, got)
		}
		if got := strings.Join(result[1].Data, ","); got != "C!" || result[1].Key != 2 {
			t.Errorf("batch 1: got %v %q", result[1].Key, got)
		}
	})

	t.Run("nil func passes batches through", func(t *testing.T) {
		p := &Transform[int, []string, string]{}
		in := []page{{Key: 1, Data: []string{"a"}}}

		result, err := p.FetchUpdate(ctx, in, "")
		if err != nil || len(result) != 1 || result[0].Data[0] != "a" {
			t.Errorf("FetchUpdate() = %v, %v", result, err)
		}
	})

	t.Run("skips failed batches", func(t *testing.T) {
		p := &Transform[int, []string, string]{Func: upper}

		result, err := p.FetchUpdate(ctx, []page{{Key: 1, Data: []string{"bad"}}, {Key: 2, Data: []string{"c"}}}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result) != 1 || result[0].Key != 2 {
			t.Errorf("expected only batch 2, got %v", result)
		}
	})

	t.Run("stops on error", func(t *testing.T) {
		p := &Transform[int, []string, string]{Func: upper, StopOnError: true}

		result, err := p.FetchUpdate(ctx, []page{{Key: 1, Data: []string{"bad"}}, {Key: 2, Data: []string{"c"}}}, "")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "batch 1") {
			t.Errorf("error %q doesn't name the batch", err)
		}
		if result != nil {
			t.Errorf("expected no batches, got %v", result)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		p := &Transform[int, []string, string]{Func: upper}

		if _, err := p.FetchUpdate(ctx, []page{{Key: 1}}, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestTransform_FetchUpdateAsync(t *testing.T) {
	p := &Transform[int, []string, string]{Func: upper}
	current := []page{{Key: 1, Data: []string{"x"}}}

	var applied [][]page
	var errs []error
	apply := func(fn func([]page) ([]page, error)) {
		res, err := fn(current)
		applied = append(applied, res)
		errs = append(errs, err)
	}

	// Batch 2 is no longer loaded and batch 1 changed since the update was
	// requested.
	err := p.FetchUpdateAsync(context.Background(), []page{{Key: 1, Data: []string{"a"}}, {Key: 2, Data: []string{"b"}}}, "", apply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applies, got %d", len(applied))
	}
	if len(applied[0]) != 1 || applied[0][0].Data[0] != "X" {
		t.Errorf("first apply = %v, want the latest data of batch 1", applied[0])
	}
	if applied[1] != nil || errs[1] != nil {
		t.Errorf("second apply = %v, %v, want nothing", applied[1], errs[1])
	}

	current = []page{{Key: 1, Data: []string{"bad"}}}
	applied, errs = nil, nil
	_ = p.FetchUpdateAsync(context.Background(), []page{{Key: 1}}, "", apply)
	if errs[0] == nil {
		t.Error("expected the transformation error to be returned by the apply function")
	}
}

func TestNewTransform(t *testing.T) {
	if _, err := NewTransform[int](TransformConfig[[]string, string]{}); err == nil {
		t.Error("expected an error for a nil Func")
	}

	p, err := NewTransform[int](TransformConfig[[]string, string]{Func: upper})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.StopOnError {
		t.Error("StopOnError should default to true without ContinueOnError")
	}

	var _ batch.AsyncUpdateFetcher[int, []string, string] = p
}
