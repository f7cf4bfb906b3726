package notify

import (
	"context"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
)

const forwardTimeout = 5 * time.Second

// Forward relays every notification from src to dst until src closes.
// Delivery failures are logged and dropped; the persisted feed stays authoritative.
func Forward(ctx context.Context, src <-chan model.Notification, dst Publisher, log logger.Logger) {
	for n := range src {
		pctx, cancel := context.WithTimeout(ctx, forwardTimeout)
		if err := dst.Publish(pctx, n); err != nil {
			log.Warn(ctx, "notification forward failed", logger.String("id", n.ID), logger.Error(err))
		}
		cancel()
	}
}
