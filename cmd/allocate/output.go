package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	if title != "" {
		tw.SetTitle("%s", title)
	}
	return tw
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func quantity(q decimal.Decimal, unit string) string {
	return strings.TrimSpace(q.String() + " " + unit)
}

func renderRecords(w io.Writer, title string, records []inventory.AllocationRecord, total, remaining decimal.Decimal, unit string) {
	tw := newTable(w, title)
	tw.AppendHeader(table.Row{"Batch", "Available", "Allocated", "Share %", "Partial"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			r.BatchCode,
			quantity(r.BatchQuantity, r.Unit),
			quantity(r.QuantityAllocated, r.Unit),
			r.ContributionPercentage.StringFixed(2),
			yesNo(r.Partial),
		})
	}
	tw.AppendFooter(table.Row{"Total", "", quantity(total, unit), "", ""})
	tw.AppendFooter(table.Row{"Remaining", "", quantity(remaining, unit), "", ""})
	tw.Render()
}

func renderPlan(w io.Writer, resp *inventoryapp.PlanResponse) {
	plan := resp.Plan
	title := fmt.Sprintf("%s plan for %s", plan.Policy, quantity(plan.RequiredQuantity, plan.RequiredUnit))
	renderRecords(w, title, plan.Records, plan.TotalAllocated, plan.Remaining, plan.RequiredUnit)
	fmt.Fprintf(w, "Can fulfill: %s  Partial batches: %d\n", yesNo(plan.CanFulfill), resp.PartialCount)

	if len(resp.Unallocated) > 0 {
		tw := newTable(w, "Unallocated batches")
		tw.AppendHeader(table.Row{"Batch", "Quantity", "Produced"})
		for _, b := range resp.Unallocated {
			tw.AppendRow(table.Row{b.BatchCode, quantity(b.Quantity, b.Unit), b.ProducedAt.Format("2006-01-02")})
		}
		tw.Render()
	}
	if len(plan.Excluded) > 0 {
		tw := newTable(w, "Excluded batches")
		tw.AppendHeader(table.Row{"Batch", "Reason"})
		for _, e := range plan.Excluded {
			tw.AppendRow(table.Row{e.BatchCode, e.Reason})
		}
		tw.Render()
	}
	for _, s := range resp.Suggestions {
		fmt.Fprintf(w, "Suggestion (%s): %s\n", s.Action, s.Message)
	}
}

func renderCompare(w io.Writer, resp *inventoryapp.CompareResponse) {
	tw := newTable(w, fmt.Sprintf("Policies for %s", quantity(resp.RequiredQuantity, resp.RequiredUnit)))
	tw.AppendHeader(table.Row{"Policy", "Allocated", "Remaining", "Fulfilled", "Batches", "Partial"})
	for _, p := range resp.Policies {
		name := p.Policy
		if name == resp.DefaultPolicy {
			name += " *"
		}
		tw.AppendRow(table.Row{
			name,
			quantity(p.TotalAllocated, resp.RequiredUnit),
			quantity(p.Remaining, resp.RequiredUnit),
			yesNo(p.CanFulfill),
			p.RecordCount,
			p.PartialCount,
		})
	}
	tw.AppendFooter(table.Row{"* default", "", "", "", "", ""})
	tw.Render()
}

func renderPreviewResult(w io.Writer, result *previewResult) {
	switch {
	case result.Plan != nil:
		plan := result.Plan.Plan
		renderRecords(w, fmt.Sprintf("%s plan", plan.Policy), plan.Records, plan.TotalAllocated, plan.Remaining, plan.RequiredUnit)
	case result.Session != nil:
		s := result.Session
		renderRecords(w, "Manual picks", s.Records, s.TotalAllocated, s.Remaining, s.RequiredUnit)
	}
	renderPreview(w, result.Preview)
}

func renderPreview(w io.Writer, pv *inventory.AllocationPreview) {
	tw := newTable(w, "Mass balance")
	tw.AppendRows([]table.Row{
		{"Requested", pv.Requested.String()},
		{"Allocated", pv.TotalAllocated.String()},
		{"Remaining", pv.Remaining.String()},
		{"Contribution total %", pv.ContributionTotal.StringFixed(2)},
		{"Contribution balanced", yesNo(pv.ContributionBalanced)},
		{"Total matches requested", yesNo(pv.TotalMatchesRequested)},
	})
	if len(pv.Outputs) > 0 {
		tw.AppendRows([]table.Row{
			{"Output total", pv.OutputTotal.String()},
			{"Yield total %", pv.YieldTotal.String()},
			{"Output/input ratio", pv.Ratio.String()},
			{"Out of balance", yesNo(pv.OutOfBalance)},
		})
	}
	tw.Render()

	if len(pv.Outputs) > 0 {
		out := newTable(w, "Outputs")
		out.AppendHeader(table.Row{"Output", "Quantity", "Yield %", "Derived"})
		for _, o := range pv.Outputs {
			out.AppendRow(table.Row{o.Name, o.Quantity.String(), o.YieldPercentage.String(), yesNo(o.Derived)})
		}
		out.Render()
	}
	if len(pv.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings: %s\n", strings.Join(pv.Warnings, ", "))
	}
}

func renderPolicies(w io.Writer, descriptors []strategy.Descriptor, def string) {
	tw := newTable(w, "Allocation policies")
	tw.AppendHeader(table.Row{"Policy", "Default", "Description"})
	for _, d := range descriptors {
		tw.AppendRow(table.Row{d.Name, yesNo(d.Name == def), d.Description})
	}
	tw.Render()
}
