package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	"github.com/supplychain/procurement/internal/domain/inventory"
)

const pool = `
required_quantity: 800
required_unit: kg
batches:
  - batch_code: HB-20260110-001
    quantity: 400
    unit: kg
    produced_at: 2026-01-10T08:00:00Z
  - batch_code: HB-20260212-001
    quantity: 500
    unit: kg
    produced_at: 2026-02-12T08:00:00Z
    origin:
      farm_name: Finca Alta
      certifications: [organic]
  - batch_code: HB-20260305-001
    quantity: 300
    unit: kg
    produced_at: 2026-03-05T08:00:00Z
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func codes(records []inventory.AllocationRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.BatchCode)
	}
	return out
}

func TestPlanCommand(t *testing.T) {
	path := writeScenario(t, pool)

	tests := []struct {
		name        string
		policy      string
		records     []string
		partial     int
		unallocated int
	}{
		{"default policy is FIFO", "", []string{"HB-20260110-001", "HB-20260212-001"}, 1, 1},
		{"LIFO", "LIFO", []string{"HB-20260305-001", "HB-20260212-001"}, 0, 1},
		{"policy names are normalized", "entire-batches-first", nil, -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"plan", "-f", path, "--json"}
			if tt.policy != "" {
				args = append(args, "--policy", tt.policy)
			}
			out, err := run(t, "", args...)
			require.NoError(t, err)

			var resp inventoryapp.PlanResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.True(t, resp.Plan.CanFulfill)
			assert.True(t, decimal.NewFromInt(800).Equal(resp.Plan.TotalAllocated))
			if tt.records != nil {
				assert.Equal(t, tt.records, codes(resp.Plan.Records))
			}
			if tt.partial >= 0 {
				assert.Equal(t, tt.partial, resp.PartialCount)
			}
			if tt.unallocated >= 0 {
				assert.Len(t, resp.Unallocated, tt.unallocated)
			}
		})
	}
}

func TestPlanCommand_Table(t *testing.T) {
	path := writeScenario(t, strings.Replace(pool, "required_quantity: 800", "required_quantity: 1500", 1))

	out, err := run(t, "", "plan", "-f", path)
	require.NoError(t, err)

	assert.Contains(t, out, "FIFO plan for 1500 kg")
	assert.Contains(t, out, "HB-20260305-001")
	assert.Contains(t, out, "Can fulfill: no")
	assert.Contains(t, out, "Suggestion ("+inventoryapp.SuggestionDeclareHarvest+")")
}

func TestPlanCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		args    []string
		message string
	}{
		{"unknown policy", pool, []string{"--policy", "RANDOM"}, "Unknown allocation policy"},
		{"no batches", "required_quantity: 10\nrequired_unit: kg\n", nil, "no batches"},
		{"unknown field", pool + "priority: high\n", nil, "field priority not found"},
		{
			"duplicate batch code",
			strings.Replace(pool, "HB-20260305-001", "HB-20260110-001", 1),
			nil,
			"appears more than once",
		},
		{
			"non-positive requirement",
			strings.Replace(pool, "required_quantity: 800", "required_quantity: 0", 1),
			nil,
			"greater than zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.body)
			_, err := run(t, "", append([]string{"plan", "-f", path}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("file flag is required", func(t *testing.T) {
		_, err := run(t, "", "plan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"file" not set`)
	})
}

func TestPlanCommand_Stdin(t *testing.T) {
	out, err := run(t, pool, "plan", "-f", "-", "--json", "--policy", "PROPORTIONAL")
	require.NoError(t, err)

	var resp inventoryapp.PlanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, inventory.PolicyProportional, resp.Plan.Policy)
	assert.Len(t, resp.Plan.Records, 3)
	assert.True(t, decimal.NewFromInt(800).Equal(resp.Plan.TotalAllocated))
}

func TestCompareCommand(t *testing.T) {
	path := writeScenario(t, pool)

	out, err := run(t, "", "compare", "-f", path, "--json")
	require.NoError(t, err)

	var resp inventoryapp.CompareResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "FIFO", resp.DefaultPolicy)
	require.Len(t, resp.Policies, 4)
	for _, p := range resp.Policies {
		assert.True(t, decimal.NewFromInt(800).Equal(p.TotalAllocated), p.Policy)
		assert.True(t, p.CanFulfill, p.Policy)
	}

	out, err = run(t, "", "compare", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FIFO *")
	assert.Contains(t, out, "PROPORTIONAL")
}

func TestPreviewCommand_Plan(t *testing.T) {
	path := writeScenario(t, pool+`
outputs:
  - name: green coffee
    yield_percentage: 98
`)

	out, err := run(t, "", "preview", "-f", path, "--json")
	require.NoError(t, err)

	var result previewResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Plan)
	assert.Nil(t, result.Session)
	require.NotNil(t, result.Preview)

	pv := result.Preview
	assert.True(t, pv.CanFulfill)
	assert.True(t, pv.ContributionBalanced)
	assert.True(t, pv.TotalMatchesRequested)
	assert.False(t, pv.OutOfBalance)
	require.Len(t, pv.Outputs, 1)
	assert.True(t, pv.Outputs[0].Derived)
	assert.True(t, decimal.NewFromInt(784).Equal(pv.Outputs[0].Quantity))
}

func TestSessionCommand(t *testing.T) {
	path := writeScenario(t, pool+`
picks:
  - batch_code: HB-20260212-001
  - batch_code: HB-20260110-001
    quantity: 300
outputs:
  - name: roasted
    yield_percentage: 80
`)

	out, err := run(t, "", "session", "-f", path, "--json")
	require.NoError(t, err)

	var result previewResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotNil(t, result.Session)
	assert.Equal(t, []string{"HB-20260212-001", "HB-20260110-001"}, codes(result.Session.Records))
	assert.True(t, result.Session.CanFulfill)

	pv := result.Preview
	require.NotNil(t, pv)
	assert.True(t, decimal.NewFromInt(800).Equal(pv.TotalAllocated))
	assert.True(t, pv.ContributionBalanced)
	assert.True(t, pv.OutOfBalance)
	assert.Contains(t, pv.Warnings, inventory.WarningOutOfBalance)

	out, err = run(t, "", "session", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Manual picks")
	assert.Contains(t, out, "Mass balance")
	assert.Contains(t, out, "Warnings: "+inventory.WarningOutOfBalance)
}

func TestSessionCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no picks", pool, "no picks"},
		{"unknown batch", pool + "picks:\n  - batch_code: HB-19990101-001\n", "unknown batch"},
		{
			"duplicate pick",
			pool + "picks:\n  - batch_code: HB-20260110-001\n    quantity: 100\n  - batch_code: HB-20260110-001\n    quantity: 100\n",
			"pick 2 (HB-20260110-001)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.body)
			_, err := run(t, "", "session", "-f", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestPoliciesCommand(t *testing.T) {
	out, err := run(t, "", "policies", "--json")
	require.NoError(t, err)

	var resp struct {
		Default  string `json:"default"`
		Policies []struct {
			Name string `json:"name"`
		} `json:"policies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "FIFO", resp.Default)
	assert.Len(t, resp.Policies, 4)
}

func TestPoliciesCommand_ConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[allocation]\ndefault_policy = \"LIFO\"\n"), 0o600))

	out, err := run(t, "", "policies", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Allocation policies")
	assert.Regexp(t, `LIFO\s+│\s+yes`, out)
}
