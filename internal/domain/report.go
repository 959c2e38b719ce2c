package domain

// ProviderOutcome is the result of one provider's pass within a sync run.
// A failed provider still reports the counts it committed before failing.
type ProviderOutcome struct {
	Provider  Source `json:"provider"`
	Success   bool   `json:"success"`
	Attempted int    `json:"attempted"`
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
	Fallbacks int    `json:"fallbacks"`
	FromCache bool   `json:"from_cache"`
	Error     string `json:"error,omitempty"`
}

// SyncReport aggregates one orchestrator run. It is transient: constructed
// fresh on every call and never persisted.
type SyncReport struct {
	Imported  int               `json:"imported"`
	Skipped   int               `json:"skipped"`
	Providers []ProviderOutcome `json:"providers"`
}

// Add folds one provider outcome into the report totals.
func (r *SyncReport) Add(o ProviderOutcome) {
	r.Imported += o.Imported
	r.Skipped += o.Skipped
	r.Providers = append(r.Providers, o)
}
