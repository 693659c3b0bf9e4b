package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// RawPercentage keeps a holder's share of supply exactly as the upstream API
// sent it. Older payloads carry a JSON number, newer ones a quoted decimal string.
type RawPercentage string

// UnmarshalJSON accepts both a JSON number and a JSON string
func (p *RawPercentage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = RawPercentage(s)
		return nil
	}

	*p = RawPercentage(data)
	return nil
}

// RawHolder represents a holder record as delivered by the holder data provider
type RawHolder struct {
	Address          string        `json:"address"`
	Amount           *float64      `json:"amount,omitempty"`
	AmountPercentage RawPercentage `json:"amount_percentage"`
}

// Holder represents an address owning a fraction of a token's supply
type Holder struct {
	Address  string  `json:"address"`
	Fraction float64 `json:"fraction"` // 0.0 - 1.0
}

// Percentage returns the holding expressed in percent of supply
func (h Holder) Percentage() float64 {
	return h.Fraction * 100
}

// HolderShare is a holder as presented in a risk report
type HolderShare struct {
	Address    string  `json:"address"`
	Percentage float64 `json:"percentage"`
}

// HolderSnapshot is the normalized holder list and fund graph of one token
// at one point in time
type HolderSnapshot struct {
	TokenAddress string    `json:"token_address"`
	UpdatedAt    string    `json:"updated_at,omitempty"`
	Holders      []Holder  `json:"holders"`
	Graph        FundGraph `json:"graph"`
	TopNodes     []string  `json:"top_nodes,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// LargestHolder returns the holder with the highest fraction.
// The boolean is false when the snapshot has no holders.
func (s *HolderSnapshot) LargestHolder() (Holder, bool) {
	if len(s.Holders) == 0 {
		return Holder{}, false
	}

	largest := s.Holders[0]
	for _, h := range s.Holders[1:] {
		if h.Fraction > largest.Fraction {
			largest = h
		}
	}
	return largest, true
}
