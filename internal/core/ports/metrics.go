package ports

// Metrics receives the counters of the core. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// DispatchOutcome counts AssignOrder results by mode (auto, manual) and outcome
	// (assigned, no_courier, not_eligible, conflict, error).
	DispatchOutcome(mode, outcome string)
	// CandidateRejected counts couriers filtered out of a ranking, by reason.
	CandidateRejected(reason string)
	// ConflictRetried counts optimistic-concurrency retries per operation.
	ConflictRetried(operation string)
	// LocationRecorded counts accepted location reports.
	LocationRecorded(suspicious, duplicate bool)
	// HotCacheFailed counts hot-tier errors by operation (get, get_many, set).
	HotCacheFailed(operation string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) DispatchOutcome(string, string) {}
func (NopMetrics) CandidateRejected(string)       {}
func (NopMetrics) ConflictRetried(string)         {}
func (NopMetrics) LocationRecorded(bool, bool)    {}
func (NopMetrics) HotCacheFailed(string)          {}
