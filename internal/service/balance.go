package service

// Available derives the claimable balance from the two cumulative counters.
// Completed claims can never push it negative; the clamp only matters if the
// ledger has diverged, in which case claims are blocked rather than refunded.
func Available(totalEarned, claimed int64) int64 {
	if claimed >= totalEarned {
		return 0
	}
	return totalEarned - claimed
}

type TokenStats struct {
	TotalEarned int64
	Available   int64
	Claimed     int64
}
