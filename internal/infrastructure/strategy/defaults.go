package strategy

import (
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/infrastructure/strategy/allocation"
)

// Options configures the default registry
type Options struct {
	// DefaultPolicy is used when a request names no policy. Empty means FIFO.
	DefaultPolicy string
	// ProportionalScale is the number of decimals kept in proportional shares
	ProportionalScale int32
}

// NewRegistryWithDefaults creates a registry holding the four built-in allocation policies
func NewRegistryWithDefaults(opts Options) (*PolicyRegistry, error) {
	r := NewPolicyRegistry()

	policies := []inventory.AllocationPolicy{
		allocation.NewFIFOPolicy(),
		allocation.NewLIFOPolicy(),
		allocation.NewEntireBatchesFirstPolicy(),
		allocation.NewProportionalPolicy(opts.ProportionalScale),
	}
	for _, p := range policies {
		if err := r.RegisterAllocationPolicy(p); err != nil {
			return nil, err
		}
	}

	def := string(inventory.ParsePolicyType(opts.DefaultPolicy))
	if def == "" {
		def = string(inventory.PolicyFIFO)
	}
	if err := r.SetDefault(def); err != nil {
		return nil, err
	}
	return r, nil
}
