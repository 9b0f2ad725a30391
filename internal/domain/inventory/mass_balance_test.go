package inventory

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplychain/procurement/internal/domain/shared"
)

func fullAllocation() []AllocationRecord {
	required := decimal.NewFromInt(1000)
	return []AllocationRecord{
		NewAllocationRecord(testBatch("A", 600), decimal.NewFromInt(600), required),
		NewAllocationRecord(testBatch("B", 700), decimal.NewFromInt(400), required),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestPreviewAllocation_Contribution(t *testing.T) {
	cfg := DefaultMassBalanceConfig()

	t.Run("full allocation balances", func(t *testing.T) {
		pv, err := PreviewAllocation(PreviewInput{Records: fullAllocation(), RequestedQuantity: decimal.NewFromInt(1000)}, cfg)
		require.NoError(t, err)

		assert.True(t, pv.CanFulfill)
		assert.True(t, pv.TotalMatchesRequested)
		assert.True(t, pv.ContributionBalanced)
		assert.True(t, pv.ContributionTotal.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, pv.Warnings)
	})

	t.Run("contribution drift is flagged", func(t *testing.T) {
		records := fullAllocation()
		records[0].ContributionPercentage = decimal.RequireFromString("60.2")

		pv, err := PreviewAllocation(PreviewInput{Records: records, RequestedQuantity: decimal.NewFromInt(1000)}, cfg)
		require.NoError(t, err)
		assert.False(t, pv.ContributionBalanced)
		assert.Contains(t, pv.Warnings, WarningContributionMismatch)
	})

	t.Run("many small records stay balanced", func(t *testing.T) {
		required := decimal.NewFromInt(300)
		records := make([]AllocationRecord, 0, 60)
		for i := range 60 {
			records = append(records, NewAllocationRecord(testBatch(fmt.Sprintf("HB-%02d", i), 5), decimal.NewFromInt(5), required))
		}
		require.True(t, records[0].ContributionPercentage.Equal(decimal.RequireFromString("1.67")))

		pv, err := PreviewAllocation(PreviewInput{Records: records, RequestedQuantity: required}, cfg)
		require.NoError(t, err)
		assert.True(t, pv.CanFulfill)
		assert.True(t, pv.ContributionBalanced)
		assert.True(t, pv.ContributionTotal.Equal(decimal.NewFromInt(100)), pv.ContributionTotal.String())
		assert.Empty(t, pv.Warnings)
	})

	t.Run("partial allocation reports remaining", func(t *testing.T) {
		pv, err := PreviewAllocation(PreviewInput{Records: fullAllocation()[:1], RequestedQuantity: decimal.NewFromInt(1000)}, cfg)
		require.NoError(t, err)
		assert.False(t, pv.CanFulfill)
		assert.True(t, pv.Remaining.Equal(decimal.NewFromInt(400)))
		assert.True(t, pv.ContributionBalanced)
		assert.Contains(t, pv.Warnings, WarningTotalMismatch)
	})

	t.Run("over allocation", func(t *testing.T) {
		pv, err := PreviewAllocation(PreviewInput{Records: fullAllocation(), RequestedQuantity: decimal.NewFromInt(900)}, cfg)
		require.NoError(t, err)
		assert.False(t, pv.TotalMatchesRequested)
		assert.Contains(t, pv.Warnings, WarningOverAllocated)
	})
}

func TestPreviewAllocation_MassBalance(t *testing.T) {
	cfg := DefaultMassBalanceConfig()
	requested := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		outputs []TransformationOutput
		ratio   string
		flagged bool
	}{
		{
			name:    "ratio 1.10 is out of balance",
			outputs: []TransformationOutput{{Name: "juice", Quantity: dec("800")}, {Name: "pulp", Quantity: dec("300")}},
			ratio:   "1.1",
			flagged: true,
		},
		{
			name:    "ratio 1.03 is within band",
			outputs: []TransformationOutput{{Name: "juice", Quantity: dec("1030")}},
			ratio:   "1.03",
			flagged: false,
		},
		{
			name:    "quantities derived from yield",
			outputs: []TransformationOutput{{Name: "flour", YieldPercentage: decimal.NewFromInt(70)}, {Name: "bran", YieldPercentage: decimal.NewFromInt(28)}},
			ratio:   "0.98",
			flagged: false,
		},
		{
			name:    "low yield is out of balance",
			outputs: []TransformationOutput{{Name: "oil", YieldPercentage: decimal.NewFromInt(40)}},
			ratio:   "0.4",
			flagged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pv, err := PreviewAllocation(PreviewInput{Records: fullAllocation(), RequestedQuantity: requested, Outputs: tt.outputs}, cfg)
			require.NoError(t, err)

			assert.True(t, pv.Ratio.Equal(decimal.RequireFromString(tt.ratio)), pv.Ratio.String())
			assert.Equal(t, tt.flagged, pv.OutOfBalance)
			if tt.flagged {
				assert.Contains(t, pv.Warnings, WarningOutOfBalance)
			}
		})
	}

	t.Run("derived outputs are marked", func(t *testing.T) {
		pv, err := PreviewAllocation(PreviewInput{
			Records:           fullAllocation(),
			RequestedQuantity: requested,
			Outputs:           []TransformationOutput{{Name: "flour", YieldPercentage: decimal.NewFromInt(70)}},
		}, cfg)
		require.NoError(t, err)
		require.Len(t, pv.Outputs, 1)
		assert.True(t, pv.Outputs[0].Derived)
		assert.True(t, pv.Outputs[0].Quantity.Equal(decimal.NewFromInt(700)))
		assert.True(t, pv.YieldTotal.Equal(decimal.NewFromInt(70)))
	})

	t.Run("no input", func(t *testing.T) {
		pv, err := PreviewAllocation(PreviewInput{
			RequestedQuantity: requested,
			Outputs:           []TransformationOutput{{Name: "x", Quantity: dec("10")}},
		}, cfg)
		require.NoError(t, err)
		assert.False(t, pv.OutOfBalance)
		assert.Contains(t, pv.Warnings, WarningNoInput)
	})
}

func TestPreviewAllocation_Validation(t *testing.T) {
	cfg := DefaultMassBalanceConfig()

	_, err := PreviewAllocation(PreviewInput{RequestedQuantity: decimal.Zero}, cfg)
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))

	records := fullAllocation()
	records[0].QuantityAllocated = decimal.NewFromInt(-1)
	_, err = PreviewAllocation(PreviewInput{Records: records, RequestedQuantity: decimal.NewFromInt(1)}, cfg)
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))

	_, err = PreviewAllocation(PreviewInput{
		Records:           fullAllocation(),
		RequestedQuantity: decimal.NewFromInt(1000),
		Outputs:           []TransformationOutput{{Name: "bad", YieldPercentage: decimal.NewFromInt(-5)}},
	}, cfg)
	assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))

	_, err = PreviewAllocation(PreviewInput{
		Records:           fullAllocation(),
		RequestedQuantity: decimal.NewFromInt(1000),
		Outputs:           []TransformationOutput{{Name: "bad", Quantity: dec("-1")}},
	}, cfg)
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))
}
