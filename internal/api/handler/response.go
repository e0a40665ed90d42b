package handler

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SnapshotReader é satisfeito pelo engine e pelo Store
type SnapshotReader interface {
	View(collection domain.Collection) (snapshot.View, bool)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Erro ao serializar resposta")
	}
}
