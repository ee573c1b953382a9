package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Input formats recorded in Metadata.
const (
	FormatText = "text"
	FormatHTML = "html"
)

// Metadata describes one ingested description.
type Metadata struct {
	Source     string `json:"source,omitempty"`
	Format     string `json:"format"`
	Timestamp  string `json:"timestamp"` // RFC3339
	Hash       string `json:"hash"`      // SHA-256 of the extracted text
	InputBytes int    `json:"input_bytes"`
	TextBytes  int    `json:"text_bytes"`
}

// NewMetadata creates Metadata for extracted text stamped with the current
// time.
func NewMetadata(text, source string) *Metadata {
	return &Metadata{
		Source:    source,
		Format:    FormatText,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      ContentHash(text),
		TextBytes: len(text),
	}
}

// ContentHash returns the hex SHA-256 digest of text. Callers use it to
// memoize highlighting results.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to indented JSON.
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
