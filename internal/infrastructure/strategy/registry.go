package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// PolicyRegistry manages allocation policy registrations
type PolicyRegistry struct {
	mu            sync.RWMutex
	policies      map[string]inventory.AllocationPolicy
	defaultPolicy string
}

// NewPolicyRegistry creates a new, empty policy registry
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		policies: make(map[string]inventory.AllocationPolicy),
	}
}

// RegisterAllocationPolicy registers an allocation policy under its name
func (r *PolicyRegistry) RegisterAllocationPolicy(p inventory.AllocationPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.policies[name]; exists {
		return fmt.Errorf("%w: allocation policy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.policies[name] = p
	return nil
}

// GetAllocationPolicy returns a policy by name, or the default if name is empty
func (r *PolicyRegistry) GetAllocationPolicy(name string) (inventory.AllocationPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultPolicy
		if name == "" {
			return nil, fmt.Errorf("%w: no default allocation policy set", shared.ErrNotFound)
		}
	}

	p, exists := r.policies[name]
	if !exists {
		return nil, fmt.Errorf("%w: allocation policy '%s' not found", shared.ErrNotFound, name)
	}
	return p, nil
}

// GetAllocationPolicyOrDefault returns a policy by name, or the default if not found
func (r *PolicyRegistry) GetAllocationPolicyOrDefault(name string) inventory.AllocationPolicy {
	p, err := r.GetAllocationPolicy(name)
	if err != nil {
		p, _ = r.GetAllocationPolicy("")
	}
	return p
}

// ListAllocationPolicies returns all registered policy names, sorted
func (r *PolicyRegistry) ListAllocationPolicies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policies returns every registered policy ordered by name
func (r *PolicyRegistry) Policies() []inventory.AllocationPolicy {
	names := r.ListAllocationPolicies()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]inventory.AllocationPolicy, 0, len(names))
	for _, name := range names {
		if p, ok := r.policies[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Describe returns descriptors of every registered policy ordered by name
func (r *PolicyRegistry) Describe() []strategy.Descriptor {
	policies := r.Policies()
	out := make([]strategy.Descriptor, 0, len(policies))
	for _, p := range policies {
		out = append(out, strategy.Describe(p))
	}
	return out
}

// UnregisterAllocationPolicy removes a policy
func (r *PolicyRegistry) UnregisterAllocationPolicy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[name]; !exists {
		return fmt.Errorf("%w: allocation policy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.policies, name)

	// Clear default if it was this policy
	if r.defaultPolicy == name {
		r.defaultPolicy = ""
	}
	return nil
}

// SetDefault sets the policy used when a request names none
func (r *PolicyRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[name]; !exists {
		return fmt.Errorf("%w: allocation policy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultPolicy = name
	return nil
}

// GetDefault returns the default policy name
func (r *PolicyRegistry) GetDefault() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultPolicy
}

// HasDefault returns true if a default policy is set
func (r *PolicyRegistry) HasDefault() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultPolicy != ""
}

// IsRegistered returns true if a policy with the given name is registered
func (r *PolicyRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.policies[name]
	return exists
}

// Count returns the number of registered policies
func (r *PolicyRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.policies)
}

var _ inventory.PolicyResolver = (*PolicyRegistry)(nil)
