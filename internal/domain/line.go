// Package domain holds the core types and interfaces shared across layers.
package domain

// Line is a single stored voice utterance: the text it was generated from,
// the audio asset rendered for it, and whether the scheduler may pick it.
//
// IDs are dense: after any removal the registry re-indexes the remaining
// lines to 1..N, renaming their backing assets to match.
type Line struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Asset  string `json:"filename"`
	Active bool   `json:"active"`
}
