package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
)

const (
	webhookKeyPrefix = "webhook:counters:"
	retention        = 14 * 24 * time.Hour
)

// Webhook delivery outcomes tracked per day.
const (
	OutcomeReceived         = "received"
	OutcomeRejectedBadSig   = "rejected_signature"
	OutcomeActivated        = "activated"
	OutcomePaymentFailed    = "payment_failed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInFlight         = "in_flight"
	OutcomeUnknownInvoice   = "unknown_invoice"
	OutcomeLicenseFailed    = "license_failed"
	OutcomeProcessingFailed = "processing_failed"
)

// AddWebhookOutcome increments today's counter for one delivery outcome.
// Counters live in a per-day Redis hash that expires on its own, so there
// is no flush job to run.
func AddWebhookOutcome(outcome string) error {
	ctx := context.Background()
	key := dayKey(time.Now())
	rdb := cache.GetClient()
	if err := rdb.HIncrBy(ctx, key, outcome, 1).Err(); err != nil {
		return err
	}
	return rdb.Expire(ctx, key, retention).Err()
}

// WebhookStats returns the outcome counters recorded for the given day.
// Days without any recorded delivery return an empty map.
func WebhookStats(day time.Time) (map[string]int64, error) {
	data, err := cache.GetClient().HGetAll(context.Background(), dayKey(day)).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(data))
	for outcome, raw := range data {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		stats[outcome] = n
	}
	return stats, nil
}

func dayKey(t time.Time) string {
	return fmt.Sprintf("%s%s", webhookKeyPrefix, t.UTC().Format("2006-01-02"))
}
