package shutdown

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/psantana5/container-control/pkg/logging"
)

func quietLogger() *logging.Logger {
	l := logging.NewLogger("test", logging.ERROR, false)
	l.SetOutput(io.Discard)
	return l
}

func TestShutdownRunsLIFO(t *testing.T) {
	m := New(time.Second, quietLogger())

	var order []string
	m.Register("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.Register("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	m.Shutdown()

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("shutdown order = %v, want [second first]", order)
	}
}

func TestShutdownContinuesOnError(t *testing.T) {
	m := New(time.Second, quietLogger())

	ran := false
	m.Register("inner", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.Register("outer", func(ctx context.Context) error {
		return errors.New("refused")
	})

	m.Shutdown()

	if !ran {
		t.Error("a failing step must not block later steps")
	}
}

func TestShutdownBoundedByTimeout(t *testing.T) {
	m := New(50*time.Millisecond, quietLogger())

	m.Register("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	start := time.Now()
	m.Shutdown()
	if time.Since(start) > time.Second {
		t.Error("shutdown exceeded its timeout bound")
	}
}
