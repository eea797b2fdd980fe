package models

// -----------------------------------------------------------------------------
// Watchlist feed messages
// -----------------------------------------------------------------------------

// MWatchlistUpdate is pushed to websocket subscribers after a refresh.
type MWatchlistUpdate struct {
	Type      string                   `json:"type"` // "SNAPSHOT" or "UPDATE"
	Results   map[string]MScreenResult `json:"results"`
	Timestamp int64                    `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// Filter returns a copy restricted to symbols. No symbols means everything.
func (u MWatchlistUpdate) Filter(symbols map[string]bool) MWatchlistUpdate {
	out := MWatchlistUpdate{Type: u.Type, Timestamp: u.Timestamp, Results: make(map[string]MScreenResult)}
	for tkr, r := range u.Results {
		if len(symbols) == 0 || symbols[tkr] {
			out.Results[tkr] = r
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"` // "subscribe" or "unsubscribe"
	Symbols []string `json:"symbols"`
}
