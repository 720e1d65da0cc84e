package trading

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"go.uber.org/zap"
)

// SetupSymbols applies leverage and margin mode for every symbol
// concurrently. Failures (including "already set" rejections) are logged and
// never escalate; trading readiness does not depend on these calls.
func SetupSymbols(ctx context.Context, gateway ExchangeGateway, symbols []string, leverage int, mode types.MarginMode, log *logger.Logger) {
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)

		go func(symbol string) {
			defer wg.Done()

			if err := gateway.SetLeverage(ctx, symbol, leverage); err != nil {
				log.Warn("Leverage setup failed",
					zap.String("symbol", symbol),
					zap.Int("leverage", leverage),
					zap.Error(err))
			}

			if err := gateway.SetMarginMode(ctx, symbol, mode); err != nil {
				log.Warn("Margin mode setup failed",
					zap.String("symbol", symbol),
					zap.String("mode", string(mode)),
					zap.Error(err))
			}
		}(symbol)
	}

	wg.Wait()
}
