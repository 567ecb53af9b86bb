package supermaya

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// entityToSymbol maps known financial entity names to ticker symbols.
// Extraction is a case-insensitive substring match over this finite
// dictionary, not an NLU step.
var entityToSymbol = map[string]string{
	"nifty 50": "^NSEI",
	"nifty50":  "^NSEI",
	"sensex":   "^BSESN",
}

const financialHelpResponse = "I can fetch stock chart data for Nifty 50 and Sensex."

// historyPeriod is the window of daily closes fetched for a chart.
const historyPeriod = "1mo"

// financialAgent answers market-data queries with a price summary and a
// line-chart specification.
type financialAgent struct {
	market MarketDataClient
	logger *slog.Logger
}

func newFinancialAgent(market MarketDataClient, logger *slog.Logger) *financialAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &financialAgent{market: market, logger: logger}
}

// extractSymbol returns the ticker for the first known entity name contained
// in the query, or "" when none matches.
func (a *financialAgent) extractSymbol(query string) string {
	lowered := strings.ToLower(query)
	for entity, symbol := range entityToSymbol {
		if strings.Contains(lowered, entity) {
			return symbol
		}
	}
	return ""
}

// Run never returns an error: every failure is folded into a valid
// FinancialResponse so the chat turn still completes.
func (a *financialAgent) Run(ctx context.Context, query, persona string) FinancialResponse {
	symbol := a.extractSymbol(query)
	if symbol == "" {
		return FinancialResponse{PrimaryResponse: financialHelpResponse}
	}

	a.logger.Info("financial agent running", "symbol", symbol)

	points, err := a.market.History(ctx, symbol, historyPeriod)
	if err == nil && len(points) == 0 {
		// A client may report an empty window as no rows instead of ErrNoData.
		err = ErrNoData
	}
	if err != nil {
		a.logger.Warn("financial agent degraded", "symbol", symbol, "err", err)
		return FinancialResponse{
			PrimaryResponse: fmt.Sprintf("An error occurred while fetching financial data: %v", err),
		}
	}

	values := make([]chartValue, 0, len(points))
	for _, p := range points {
		values = append(values, chartValue{
			Date:  p.Time.Format("2006-01-02"),
			Price: p.Close,
		})
	}
	latest := decimal.NewFromFloat(values[len(values)-1].Price)

	return FinancialResponse{
		PrimaryResponse: fmt.Sprintf(
			"Using real-time data from Yahoo Finance, here is the recent performance for %s. The latest closing value was approximately %s.",
			symbol, latest.StringFixed(2)),
		VisualizationSpec: buildLineChartSpec(symbol, values),
	}
}
