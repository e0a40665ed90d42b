package domain

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

type DeltaKind string

const (
	DeltaAdded    DeltaKind = "added"
	DeltaModified DeltaKind = "modified"
	DeltaRemoved  DeltaKind = "removed"
)

// Delta é uma alteração de um documento entregue pela assinatura de mudanças.
// Document fica vazio para deltas do tipo removed.
type Delta struct {
	Kind     DeltaKind           `json:"type"`
	ID       string              `json:"id"`
	Document jsoniter.RawMessage `json:"data,omitempty"`
}

// Batch é um lote ordenado de deltas de uma única coleção.
// Full indica que o lote carrega o estado completo da coleção (primeiro lote de uma sessão do transporte).
type Batch struct {
	Collection Collection `json:"collection"`
	Deltas     []Delta    `json:"deltas"`
	Full       bool       `json:"full"`
	ReceivedAt time.Time  `json:"-"`
}
