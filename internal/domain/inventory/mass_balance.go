package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Preview warnings. None of them is fatal.
const (
	WarningContributionMismatch = "contribution_mismatch"
	WarningTotalMismatch        = "total_mismatch"
	WarningOverAllocated        = "over_allocated"
	WarningOutOfBalance         = "out_of_balance"
	WarningNoInput              = "no_input"
)

var (
	hundred = decimal.NewFromInt(100)
	// roundingSlack is the most a two-place contribution can differ from its exact value
	roundingSlack = decimal.New(5, -3)
)

// MassBalanceConfig holds the preview tolerances
type MassBalanceConfig struct {
	// ContributionTolerance is the allowed distance of the contribution total from 100
	ContributionTolerance decimal.Decimal
	// DeviationBand is the allowed |output/input − 1|
	DeviationBand decimal.Decimal
}

// DefaultMassBalanceConfig returns ±0.1 percentage points and a ±5% band
func DefaultMassBalanceConfig() MassBalanceConfig {
	return MassBalanceConfig{
		ContributionTolerance: decimal.RequireFromString("0.1"),
		DeviationBand:         decimal.RequireFromString("0.05"),
	}
}

// TransformationOutput is a declared product of a transformation
type TransformationOutput struct {
	ProductID       uuid.UUID        `json:"product_id"`
	Name            string           `json:"name"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	YieldPercentage decimal.Decimal  `json:"yield_percentage"`
}

// PreviewInput is the allocation to check and optional transformation outputs
type PreviewInput struct {
	Records           []AllocationRecord     `json:"records"`
	RequestedQuantity decimal.Decimal        `json:"requested_quantity"`
	Outputs           []TransformationOutput `json:"outputs,omitempty"`
}

// PreviewOutput is an output line with its resolved quantity
type PreviewOutput struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	YieldPercentage decimal.Decimal `json:"yield_percentage"`
	Derived         bool            `json:"derived"`
}

// AllocationPreview is the result of the mass-balance check
type AllocationPreview struct {
	TotalAllocated        decimal.Decimal `json:"total_allocated"`
	Requested             decimal.Decimal `json:"requested"`
	Remaining             decimal.Decimal `json:"remaining"`
	CanFulfill            bool            `json:"can_fulfill"`
	ContributionTotal     decimal.Decimal `json:"contribution_total"`
	ContributionBalanced  bool            `json:"contribution_balanced"`
	TotalMatchesRequested bool            `json:"total_matches_requested"`
	Outputs               []PreviewOutput `json:"outputs,omitempty"`
	OutputTotal           decimal.Decimal `json:"output_total"`
	Ratio                 decimal.Decimal `json:"ratio"`
	YieldTotal            decimal.Decimal `json:"yield_total"`
	OutOfBalance          bool            `json:"out_of_balance"`
	Warnings              []string        `json:"warnings,omitempty"`
}

// PreviewAllocation validates an allocation before it is submitted.
// Imbalances are reported as flags and warnings; only malformed input is an error.
func PreviewAllocation(in PreviewInput, cfg MassBalanceConfig) (AllocationPreview, error) {
	if !in.RequestedQuantity.IsPositive() {
		return AllocationPreview{}, shared.NewValidationError(shared.CodeInvalidQuantity, "Requested quantity must be greater than zero")
	}

	pv := AllocationPreview{
		Requested:         in.RequestedQuantity,
		TotalAllocated:    decimal.Zero,
		ContributionTotal: decimal.Zero,
		OutputTotal:       decimal.Zero,
		Ratio:             decimal.Zero,
		YieldTotal:        decimal.Zero,
	}
	// The total is summed from exact shares so rounding of many small records
	// cannot accumulate. Stated percentages only have to match their own share.
	exactTotal := decimal.Zero
	misstated := false
	for _, r := range in.Records {
		if r.QuantityAllocated.IsNegative() || r.ContributionPercentage.IsNegative() {
			return AllocationPreview{}, shared.NewValidationErrorf(shared.CodeInvalidQuantity,
				"Allocation for batch %s cannot be negative", r.BatchCode)
		}
		pv.TotalAllocated = pv.TotalAllocated.Add(r.QuantityAllocated)
		share := r.QuantityAllocated.Div(in.RequestedQuantity).Mul(hundred)
		exactTotal = exactTotal.Add(share)
		if r.ContributionPercentage.Sub(share).Abs().GreaterThan(roundingSlack) {
			misstated = true
		}
	}
	pv.ContributionTotal = exactTotal.Round(2)

	pv.Remaining = decimal.Max(decimal.Zero, in.RequestedQuantity.Sub(pv.TotalAllocated))
	pv.CanFulfill = pv.Remaining.IsZero()
	pv.TotalMatchesRequested = pv.TotalAllocated.Equal(in.RequestedQuantity)
	if pv.TotalAllocated.GreaterThan(in.RequestedQuantity) {
		pv.Warnings = append(pv.Warnings, WarningOverAllocated)
	} else if !pv.TotalMatchesRequested {
		pv.Warnings = append(pv.Warnings, WarningTotalMismatch)
	}

	pv.ContributionBalanced = true
	if pv.CanFulfill {
		drift := exactTotal.Sub(hundred).Abs()
		if misstated || drift.GreaterThan(cfg.ContributionTolerance) {
			pv.ContributionBalanced = false
			pv.Warnings = append(pv.Warnings, WarningContributionMismatch)
		}
	}

	if len(in.Outputs) == 0 {
		return pv, nil
	}

	pv.Outputs = make([]PreviewOutput, 0, len(in.Outputs))
	for _, o := range in.Outputs {
		if o.YieldPercentage.IsNegative() {
			return AllocationPreview{}, shared.NewValidationErrorf(shared.CodeInvalidInput,
				"Yield for output %s cannot be negative", o.Name)
		}
		line := PreviewOutput{ProductID: o.ProductID, Name: o.Name, YieldPercentage: o.YieldPercentage}
		if o.Quantity != nil {
			if o.Quantity.IsNegative() {
				return AllocationPreview{}, shared.NewValidationErrorf(shared.CodeInvalidQuantity,
					"Quantity for output %s cannot be negative", o.Name)
			}
			line.Quantity = *o.Quantity
		} else {
			line.Quantity = pv.TotalAllocated.Mul(o.YieldPercentage).Div(hundred)
			line.Derived = true
		}
		pv.Outputs = append(pv.Outputs, line)
		pv.OutputTotal = pv.OutputTotal.Add(line.Quantity)
		pv.YieldTotal = pv.YieldTotal.Add(o.YieldPercentage)
	}

	if !pv.TotalAllocated.IsPositive() {
		pv.Warnings = append(pv.Warnings, WarningNoInput)
		return pv, nil
	}
	pv.Ratio = pv.OutputTotal.Div(pv.TotalAllocated).Round(4)
	if pv.Ratio.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(cfg.DeviationBand) {
		pv.OutOfBalance = true
		pv.Warnings = append(pv.Warnings, WarningOutOfBalance)
	}
	return pv, nil
}
