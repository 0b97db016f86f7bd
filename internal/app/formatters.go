package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/valuation"
)

// formatQuote formats a single resolved price as markdown
func formatQuote(req models.PriceRequest, q *models.PriceQuote) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", req.Ticker()))
	sb.WriteString(fmt.Sprintf("**Kind:** %s\n", instrument.Classify(req.Ticker())))
	if date, ok := req.AsOf(); ok {
		sb.WriteString(fmt.Sprintf("**Requested:** %s\n", date.Format(models.DateLayout)))
	} else {
		sb.WriteString("**Requested:** current\n")
	}
	sb.WriteString(fmt.Sprintf("**Price:** %s\n", valuation.FormatINR(q.Price())))
	sb.WriteString(fmt.Sprintf("**As of:** %s (%d days from request)\n", q.AsOf().Format(models.DateLayout), q.DistanceDays()))
	sb.WriteString(fmt.Sprintf("**Source:** %s", q.Source()))
	if q.Provider() != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", q.Provider()))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Confidence:** %s\n", q.Confidence()))
	return sb.String()
}

// formatBatch formats a batch result as a markdown table in request order
func formatBatch(requests []models.PriceRequest, result models.BatchResult) string {
	var sb strings.Builder
	sb.WriteString("# Prices\n\n")
	sb.WriteString(fmt.Sprintf("Resolved %d of %d\n\n", result.Resolved(), len(result)))
	sb.WriteString("| Ticker | Date | Price | As Of | Source | Confidence |\n")
	sb.WriteString("|--------|------|-------|-------|--------|------------|\n")

	seen := make(map[models.PriceRequest]bool, len(requests))
	for _, req := range requests {
		if seen[req] {
			continue
		}
		seen[req] = true

		date := "current"
		if d, ok := req.AsOf(); ok {
			date = d.Format(models.DateLayout)
		}
		q, _ := result.Lookup(req)
		if q == nil {
			sb.WriteString(fmt.Sprintf("| %s | %s | - | - | unresolved | - |\n", req.Ticker(), date))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			req.Ticker(), date, valuation.FormatINR(q.Price()), q.AsOf().Format(models.DateLayout), q.Source(), q.Confidence()))
	}
	return sb.String()
}

// formatClassification formats offline ticker facts as markdown
func formatClassification(c instrument.Classification) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", c.Ticker))
	sb.WriteString(fmt.Sprintf("**Normalized:** %s\n", c.Normalized))
	sb.WriteString(fmt.Sprintf("**Kind:** %s\n", c.Kind))
	if c.SchemeCode != "" {
		sb.WriteString(fmt.Sprintf("**Scheme Code:** %s\n", c.SchemeCode))
	}
	if c.FundHouse != "" {
		sb.WriteString(fmt.Sprintf("**Fund House:** %s\n", c.FundHouse))
	}
	sb.WriteString(fmt.Sprintf("**Sector:** %s\n", c.Sector))
	sb.WriteString(fmt.Sprintf("**Default Price:** %s\n", valuation.FormatINR(c.DefaultPrice)))
	return sb.String()
}

// formatValuation formats a valuation as markdown
func formatValuation(v *models.Valuation) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Valuation: %s\n\n", v.UserID))
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", v.GeneratedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n", v.DisplayTotalValue))
	sb.WriteString(fmt.Sprintf("**Total Invested:** %s\n", valuation.FormatINR(v.TotalInvested)))
	sb.WriteString(fmt.Sprintf("**Total P&L:** %s (%s%%)\n", v.DisplayTotalPnL, v.TotalPnLPercent.StringFixed(2)))
	if v.EstimatedHoldings > 0 {
		sb.WriteString(fmt.Sprintf("**Estimated prices:** %d holdings\n", v.EstimatedHoldings))
	}
	sb.WriteString("\n")

	if len(v.Holdings) == 0 {
		sb.WriteString("No open holdings.\n")
		return sb.String()
	}

	sb.WriteString("## Holdings\n\n")
	sb.WriteString("| Ticker | Qty | Avg Cost | Price | Value | P&L | P&L % | Confidence |\n")
	sb.WriteString("|--------|-----|----------|-------|-------|-----|-------|------------|\n")
	for _, h := range v.Holdings {
		price := "-"
		if h.CurrentPrice != nil {
			price = valuation.FormatINR(h.CurrentPrice.Price())
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s%% | %s |\n",
			h.Ticker,
			h.Quantity.String(),
			valuation.FormatINR(h.AverageCost),
			price,
			h.DisplayValue,
			h.DisplayPnL,
			h.PnLPercent.StringFixed(2),
			h.Confidence,
		))
	}

	writeSlices(&sb, "By Sector", v.BySector)
	writeSlices(&sb, "By Channel", v.ByChannel)
	return sb.String()
}

func writeSlices(sb *strings.Builder, title string, slices []models.AllocationSlice) {
	if len(slices) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n## %s\n\n", title))
	sb.WriteString("| Label | Value | Weight |\n")
	sb.WriteString("|-------|-------|--------|\n")
	for _, s := range slices {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s%% |\n", s.Label, valuation.FormatINR(s.Value), s.Percent.StringFixed(2)))
	}
}

// formatRefreshReport formats a stock data refresh summary as markdown
func formatRefreshReport(r *models.RefreshReport) string {
	var sb strings.Builder
	sb.WriteString("# Stock Data Refresh\n\n")
	sb.WriteString(fmt.Sprintf("**Funds:** %d\n", r.Funds))
	sb.WriteString(fmt.Sprintf("**Equities:** %d\n", r.Equities))
	sb.WriteString(fmt.Sprintf("**Updated from providers:** %d\n", r.Updated))
	sb.WriteString(fmt.Sprintf("**Failed:** %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("**Transaction sectors updated:** %d\n", r.SectorsUpdated))
	sb.WriteString(fmt.Sprintf("**Elapsed:** %s\n", r.Elapsed.Round(time.Millisecond)))
	return sb.String()
}
