package adapter

import (
	"context"
	"testing"

	"github.com/psantana5/container-control/pkg/privilege"
)

type nopAdapter struct{}

func (nopAdapter) Start(ctx context.Context, payload Payload, wrap privilege.WrapFunc) (Handle, error) {
	return "h", nil
}
func (nopAdapter) Stop(ctx context.Context) error     { return nil }
func (nopAdapter) Update(payload Payload) (bool, error) { return false, nil }
func (nopAdapter) Metrics() map[string]interface{}    { return nil }

func TestRegistryResolve(t *testing.T) {
	Register("registry-test", func(static map[string]interface{}) (Adapter, error) {
		return nopAdapter{}, nil
	})

	ad, err := New("registry-test", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ad == nil {
		t.Fatal("factory returned nil adapter")
	}
}

func TestRegistryUnknownName(t *testing.T) {
	if _, err := New("never-registered", nil); err == nil {
		t.Fatal("expected error for unknown adapter name")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration must panic")
		}
	}()
	Register("registry-dup", func(map[string]interface{}) (Adapter, error) { return nopAdapter{}, nil })
	Register("registry-dup", func(map[string]interface{}) (Adapter, error) { return nopAdapter{}, nil })
}
