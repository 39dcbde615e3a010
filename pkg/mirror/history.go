package mirror

// History tracking utilities
//
// Every replicated change is indexed in a ZSET where:
// - Key: drey:{mirror_name}:history
// - Members: change IDs
// - Score: the time the change was applied, in Unix milliseconds
//
// This keeps the history ordered and lets callers query it by time range.

// HistoryScore converts an application timestamp to a Redis ZSET score.
func HistoryScore(appliedAtMs int64) float64 {
	return float64(appliedAtMs)
}

// AppliedAtFromScore converts a Redis ZSET score back to a timestamp.
func AppliedAtFromScore(score float64) int64 {
	return int64(score)
}
