package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwaitReturnsCompletionResult(t *testing.T) {
	res, err := Await(context.Background(), func(done Completion[int]) {
		go done(Result[int]{Value: 42, Source: SourceNetwork})
	})
	if err != nil || res.Value != 42 {
		t.Fatalf("unexpected result: %+v %v", res, err)
	}
}

func TestAwaitSurfacesResultError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Await(context.Background(), func(done Completion[int]) {
		go done(Result[int]{Err: boom})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAwaitHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Await(ctx, func(Completion[int]) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAwaitIgnoresRepeatedCompletion(t *testing.T) {
	res, err := Await(context.Background(), func(done Completion[int]) {
		done(Result[int]{Value: 1})
		done(Result[int]{Value: 2})
	})
	if err != nil || res.Value != 1 {
		t.Fatalf("first completion should win: %+v %v", res, err)
	}
}
