package models

import "time"

// Holding is one stock position in a user's tracked portfolio.
type Holding struct {
	Symbol   string    `json:"symbol"`
	Quantity float64   `json:"quantity"`
	AddedAt  time.Time `json:"addedAt"`
}

// Quote is a market-data snapshot for one symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// Article is one news item returned by the news provider.
type Article struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}
