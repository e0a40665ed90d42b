package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
	"github.com/vfg2006/pos-sync-engine/pkg/apiErrors"
)

type SnapshotResponse struct {
	Collection domain.Collection         `json:"collection"`
	Status     snapshot.Status           `json:"status"`
	Ready      bool                      `json:"ready"`
	Len        int                       `json:"len"`
	Version    uint64                    `json:"version"`
	UpdatedAt  *time.Time                `json:"updated_at,omitempty"`
	LastError  *domain.SubscriptionError `json:"last_error,omitempty"`
	Elements   any                       `json:"elements,omitempty"`
}

func newSnapshotResponse(view snapshot.View, withElements bool) SnapshotResponse {
	resp := SnapshotResponse{
		Collection: view.Collection(),
		Status:     view.Status(),
		Ready:      view.Ready(),
		Len:        view.Len(),
		Version:    view.Version(),
		LastError:  view.LastError(),
	}
	if updatedAt := view.UpdatedAt(); !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	if withElements {
		resp.Elements = view.Elements()
	}
	return resp
}

// GetSnapshot devolve o retrato atual de uma coleção; ?elements=false omite os registros
func GetSnapshot(reader SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := domain.Collection(httprouter.ParamsFromContext(r.Context()).ByName("collection"))

		view, ok := reader.View(collection)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrUnknownCollection, "Coleção desconhecida", map[string]any{
				"collection": collection,
				"accepted":   domain.Collections(),
			})
			return
		}

		withElements := r.URL.Query().Get("elements") != "false"

		logrus.WithFields(logrus.Fields{
			"collection": collection,
			"status":     view.Status(),
			"version":    view.Version(),
		}).Debug("Snapshot consultado")

		writeJSON(w, http.StatusOK, newSnapshotResponse(view, withElements))
	}
}
