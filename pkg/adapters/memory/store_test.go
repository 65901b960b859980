package memory_test

import (
	"testing"

	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/ports"
)

func TestMemoryGraphStore_Contract(t *testing.T) {
	ports.RunGraphStoreContract(t, memory.NewGraphStore())
}

func TestMemoryRunStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, memory.NewRunStore())
}
