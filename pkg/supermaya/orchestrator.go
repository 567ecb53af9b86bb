package supermaya

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// financialKeywords routes a query to the financial handler when any of them
// appears as a case-insensitive substring. A query mentioning "sensex" only
// in passing still takes the financial path; that is the intended heuristic.
var financialKeywords = []string{"nifty50", "sensex", "nifty 50"}

// Orchestrator classifies a chat query by keyword and dispatches it to
// exactly one handler. It performs no I/O itself; the handlers absorb every
// failure and always hand back a fully populated envelope.
type Orchestrator struct {
	financial *financialAgent
	text      *textAgent
	vision    *visionAgent
	logger    *slog.Logger

	modelTimeout  time.Duration
	marketTimeout time.Duration
}

type orchestratorOptions struct {
	Market        MarketDataClient
	TextClient    TextModelClient
	VisionClient  VisionModelClient
	Logger        *slog.Logger
	ModelTimeout  time.Duration
	MarketTimeout time.Duration
}

func newOrchestrator(opts orchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		financial:     newFinancialAgent(opts.Market, logger),
		text:          newTextAgent(opts.TextClient, logger),
		vision:        newVisionAgent(opts.VisionClient, logger),
		logger:        logger,
		modelTimeout:  defaultDuration(opts.ModelTimeout, 60*time.Second),
		marketTimeout: defaultDuration(opts.MarketTimeout, 15*time.Second),
	}
}

// isFinancialQuery reports whether the query contains a financial keyword.
func isFinancialQuery(query string) bool {
	lowered := strings.ToLower(query)
	for _, keyword := range financialKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// ClassifyAndRun routes a text-only query to the financial or text handler
// and returns its envelope. Upstream calls run under a bounded deadline so a
// hung provider cannot pin the request forever.
func (o *Orchestrator) ClassifyAndRun(ctx context.Context, query, persona string) Envelope {
	if isFinancialQuery(query) {
		o.logger.Info("query classified", "intent", "financial")
		runCtx, cancel := context.WithTimeout(ctx, o.marketTimeout)
		defer cancel()
		return o.financial.Run(runCtx, query, persona)
	}

	o.logger.Info("query classified", "intent", "text")
	runCtx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()
	return o.text.Run(runCtx, query, persona)
}

// RunVision handles an image-bearing query. Classification is skipped; the
// caller already decided modality by attaching an image.
func (o *Orchestrator) RunVision(ctx context.Context, query string, image Image, persona string) VisionResponse {
	runCtx, cancel := context.WithTimeout(ctx, o.modelTimeout)
	defer cancel()
	return o.vision.Run(runCtx, query, image, persona)
}
