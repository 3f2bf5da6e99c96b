package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	TickIntervalSec float64  `json:"tick_interval_sec"`
	CatalogDigest   string   `json:"catalog_digest"`
	Seasons         []string `json:"seasons,omitempty"`
}

// STATE (server -> client): the HUD projection pushed after each tick.
// HUD is pre-marshaled once per tick and shared across every client.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Version         uint64          `json:"version"`
	HUD             json.RawMessage `json:"hud"`
}
