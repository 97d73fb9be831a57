package monitor

import (
	"fmt"
	"time"

	"testnet-faucet/internal/beacon"
)

// Mainnet consensus churn parameters.
const (
	minChurnPerEpoch   = 4
	churnQuotient      = 65536
	epochsPerDay       = 225
	baselineQueueWait  = 24 * time.Hour
	hoursPerDayFloat64 = 24.0
)

// EstimateQueueWait converts a queued-validator count into an estimated
// wall-clock wait given the active set size.
func EstimateQueueWait(queued, activeValidators uint64) time.Duration {
	churnPerEpoch := activeValidators / churnQuotient
	if churnPerEpoch < minChurnPerEpoch {
		churnPerEpoch = minChurnPerEpoch
	}
	churnPerDay := churnPerEpoch * epochsPerDay

	days := float64(queued) / float64(churnPerDay)
	return time.Duration(days * hoursPerDayFloat64 * float64(time.Hour))
}

// RenderQueueReply formats the activation and exit queue estimates.
func RenderQueueReply(network string, stats beacon.QueueStats) string {
	entering := EstimateQueueWait(stats.Entering, stats.ActiveValidator)
	exiting := EstimateQueueWait(stats.Exiting, stats.ActiveValidator)

	return fmt.Sprintf(
		"%s validator queue\nActivation: %d waiting — %s\nExit: %d waiting — %s",
		network,
		stats.Entering, describeWait(entering),
		stats.Exiting, describeWait(exiting),
	)
}

func describeWait(wait time.Duration) string {
	if wait <= baselineQueueWait {
		return "normal processing time"
	}
	days := wait.Hours() / hoursPerDayFloat64
	return fmt.Sprintf("roughly %.1f days", days)
}
