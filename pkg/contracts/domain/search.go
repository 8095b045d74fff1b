package domain

// SearchState is the orchestrator's state: Idle -> Fetching -> Idle.
type SearchState string

const (
	StateIdle     SearchState = "idle"
	StateFetching SearchState = "fetching"
)

// Status lines shown to the user.
const (
	StatusFetching = "Fetching data... (please be patient due to API rate limits)"
	StatusDone     = "Done."
)

// Sector is one named preset of representative tickers.
type Sector struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// DisplaySnapshot is a copy of everything the result view shows.
type DisplaySnapshot struct {
	State         SearchState     `json:"state"`
	SearchEnabled bool            `json:"search_enabled"`
	Status        string          `json:"status"`
	SearchID      string          `json:"search_id,omitempty"`
	Rows          []DisplayRow    `json:"rows"`
	Skipped       []SkippedSymbol `json:"skipped,omitempty"`
}
