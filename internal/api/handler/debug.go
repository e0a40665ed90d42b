package handler

import (
	"net/http"

	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

type InterestCounter interface {
	Interest(collection domain.Collection) int
}

type CacheStatus interface {
	Enabled() bool
}

// DebugSources reúne o que a tela de debug inspeciona
type DebugSources struct {
	Snapshots SnapshotReader
	Interest  InterestCounter
	Recorder  *diagnostics.Recorder
	Cache     CacheStatus
}

type debugCollection struct {
	SnapshotResponse
	Interest int `json:"interest"`
}

type DebugResponse struct {
	Collections  []debugCollection   `json:"collections"`
	CacheEnabled bool                `json:"cache_enabled"`
	Events       []diagnostics.Event `json:"events"`
}

// GetDebug mostra o estado de cada coleção e os últimos eventos de diagnóstico
func GetDebug(sources DebugSources) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := DebugResponse{
			Collections: make([]debugCollection, 0, len(domain.Collections())),
			Events:      []diagnostics.Event{},
		}

		for _, collection := range domain.Collections() {
			view, ok := sources.Snapshots.View(collection)
			if !ok {
				continue
			}
			entry := debugCollection{SnapshotResponse: newSnapshotResponse(view, false)}
			if sources.Interest != nil {
				entry.Interest = sources.Interest.Interest(collection)
			}
			resp.Collections = append(resp.Collections, entry)
		}

		if sources.Cache != nil {
			resp.CacheEnabled = sources.Cache.Enabled()
		}
		if sources.Recorder != nil {
			resp.Events = sources.Recorder.Events()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
