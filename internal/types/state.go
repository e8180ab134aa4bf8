package types

// Per-restaurant orchestrator statuses. There are no other states.
const (
	StatusPending = "pending"
	StatusOK      = "ok"
)

// OrchestratorStateVersion is written into every state file.
const OrchestratorStateVersion = 3

// PipelineSteps records the most recent scrape step for a restaurant.
type PipelineSteps struct {
	ScrapeLast *ScrapeResult `json:"scrape_last,omitempty"`
	ScrapeOK   bool          `json:"scrape_ok"`
	KBHash     string        `json:"kb_hash,omitempty"`
}

// PipelineState is the mutable per-slug record. No history is kept beyond the last run.
type PipelineState struct {
	Status        string        `json:"status"`
	Steps         PipelineSteps `json:"steps"`
	LastOkAtMs    *int64        `json:"lastOkAtMs"`
	LastErrorAtMs *int64        `json:"lastErrorAtMs"`
	LastError     string        `json:"lastError,omitempty"`
}

// OrchestratorState is loaded at process start and rewritten wholesale at process end.
type OrchestratorState struct {
	Version     int                       `json:"version"`
	Restaurants map[string]*PipelineState `json:"restaurants"`
	LastRunAtMs *int64                    `json:"lastRunAtMs"`
	LastRunID   string                    `json:"lastRunId,omitempty"`
	LastError   *string                   `json:"lastError"`
}

// NewOrchestratorState returns the empty default state.
func NewOrchestratorState() *OrchestratorState {
	return &OrchestratorState{
		Version:     OrchestratorStateVersion,
		Restaurants: map[string]*PipelineState{},
	}
}

// Restaurant returns the state for slug, creating a pending record if absent.
func (s *OrchestratorState) Restaurant(slug string) *PipelineState {
	if s.Restaurants == nil {
		s.Restaurants = map[string]*PipelineState{}
	}
	rs, ok := s.Restaurants[slug]
	if !ok || rs == nil {
		rs = &PipelineState{Status: StatusPending}
		s.Restaurants[slug] = rs
	}
	if rs.Status == "" {
		rs.Status = StatusPending
	}
	return rs
}

// RestaurantRef is one entry of the orchestrator's restaurant list.
type RestaurantRef struct {
	Slug   string `json:"slug"`
	Name   string `json:"name,omitempty"`
	City   string `json:"city,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// IsActive treats a missing active flag as true.
func (r RestaurantRef) IsActive() bool {
	return r.Active == nil || *r.Active
}
