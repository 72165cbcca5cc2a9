package logger_test

import (
	"testing"

	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/logger/memory"
)

func TestDispatchToAllInstances(t *testing.T) {
	a := memory.NewMemoryLogger()
	b := memory.NewMemoryLogger()
	logger.Init(a, b)
	t.Cleanup(func() { logger.Init() })

	logger.Info("assembled", "statements", 12)
	logger.Log("plain", "k", "v")

	for _, m := range []*memory.MemoryLogger{a, b} {
		entries := m.Entries()
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Fields["statements"] != 12 {
			t.Fatalf("expected statements field, got %v", entries[0].Fields)
		}
		if entries[1].Fields["k"] != "v" {
			t.Fatalf("expected keyvals forwarded by Log, got %v", entries[1].Fields)
		}
	}
}

func TestNoInstancesIsNoop(t *testing.T) {
	logger.Init()
	logger.Warn("nobody listens")
	logger.Error("still fine")
}
