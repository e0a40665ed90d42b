package domain

import "time"

// CachedSnapshot é a cópia persistida de uma coleção no cache offline
type CachedSnapshot struct {
	Collection Collection `json:"collection"`
	Payload    []byte     `json:"-"` // Lista de registros em JSON
	Records    int        `json:"records"`
	Version    uint64     `json:"version"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
