package engine

import (
	"time"
)

// graceWindow derives the post-expiration window during which a
// contract may still be settled normally. The threshold parameter is
// read as a percentage of one day: the default 10 gives counterparties
// 2h24m after expiry before keepers may liquidate.
func graceWindow(thresholdPercent int64) time.Duration {
	return time.Duration(thresholdPercent*864) * time.Second
}
