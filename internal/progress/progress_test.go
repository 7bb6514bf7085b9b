package progress_test

import (
	"testing"

	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

func TestStreamPreservesEmissionOrder(t *testing.T) {
	sink, source := progress.NewStream()

	go func() {
		for i := 0; i < 5; i++ {
			sink.Emit(progress.ExecutionUpdate{
				Transition: progress.Transition{
					Tasks: []progress.TaskTransition{{Name: "t", FromState: state.WaitingState(), ToState: state.RunningState()}},
				},
			})
		}
		sink.Close()
	}()

	count := 0
	for range source.All() {
		count++
	}
	if count != 5 {
		t.Fatalf("received %d updates, want 5", count)
	}
}

func TestNilSinkEmitIsNoOp(t *testing.T) {
	var sink *progress.Sink
	sink.Emit(progress.ExecutionUpdate{})
	sink.Close()
}

func TestSourceNextReportsClosed(t *testing.T) {
	sink, source := progress.NewStream()
	sink.Close()
	_, ok := source.Next()
	if ok {
		t.Fatalf("Next() on a closed, empty stream should report ok=false")
	}
}
