package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	"gopkg.in/yaml.v3"
)

// Scenario is an offline allocation problem: a requirement and the batch pool to draw from
type Scenario struct {
	RequiredQuantity decimal.Decimal            `yaml:"required_quantity"`
	RequiredUnit     string                     `yaml:"required_unit"`
	Policy           string                     `yaml:"policy"`
	Batches          []inventoryapp.BatchInput  `yaml:"batches"`
	Picks            []ScenarioPick             `yaml:"picks"`
	Outputs          []inventoryapp.OutputInput `yaml:"outputs"`
}

// ScenarioPick selects a pool batch by code for a manual allocation.
// A zero quantity takes as much as the batch and the remainder allow.
type ScenarioPick struct {
	BatchCode string          `yaml:"batch_code"`
	Quantity  decimal.Decimal `yaml:"quantity"`
}

// loadScenario reads a scenario from path, or from stdin when path is "-"
func loadScenario(path string, stdin io.Reader) (*Scenario, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Batches) == 0 {
		return fmt.Errorf("scenario has no batches")
	}
	seen := make(map[string]bool, len(s.Batches))
	for i, b := range s.Batches {
		code := strings.TrimSpace(b.BatchCode)
		if code == "" {
			return fmt.Errorf("batch %d has no batch_code", i+1)
		}
		if seen[code] {
			return fmt.Errorf("batch code %s appears more than once", code)
		}
		seen[code] = true
	}
	for i, p := range s.Picks {
		if !seen[strings.TrimSpace(p.BatchCode)] {
			return fmt.Errorf("pick %d references unknown batch %q", i+1, p.BatchCode)
		}
	}
	return nil
}

// batchID returns the id the planner assigns to the batch with the given code
func (s *Scenario) batchID(code string) uuid.UUID {
	code = strings.TrimSpace(code)
	for _, b := range s.Batches {
		if strings.TrimSpace(b.BatchCode) == code {
			return b.ToDomain(uuid.Nil, uuid.Nil).ID
		}
	}
	return uuid.Nil
}

// planRequest builds the planner request; a non-empty policy overrides the scenario's
func (s *Scenario) planRequest(policy string) inventoryapp.PlanRequest {
	if policy == "" {
		policy = s.Policy
	}
	return inventoryapp.PlanRequest{
		RequiredQuantity: s.RequiredQuantity,
		RequiredUnit:     s.RequiredUnit,
		Policy:           policy,
		Batches:          s.Batches,
	}
}
