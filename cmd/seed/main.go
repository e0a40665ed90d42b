// Comando seed publica um lote completo por coleção na exchange de mudanças,
// simulando a ponte do armazenamento remoto em ambiente local.
//
// Uso: seed [arquivo.json]. Sem argumento, usa a carga embutida.
package main

import (
	"context"
	_ "embed"
	"maps"
	"os"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed/amqpfeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/messaging"
	"github.com/vfg2006/pos-sync-engine/internal/config"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/pkg/log"
)

//go:embed fixture.json
var defaultFixture []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fixture mapeia coleção -> id -> documento
type fixture map[domain.Collection]map[string]jsoniter.RawMessage

func loadFixture(args []string) (fixture, error) {
	data := defaultFixture
	if len(args) > 1 {
		content, err := os.ReadFile(args[1])
		if err != nil {
			return nil, err
		}
		data = content
	}

	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// batches monta um lote completo por coleção com deltas em ordem de id
func (f fixture) batches() map[domain.Collection][]domain.Delta {
	out := make(map[domain.Collection][]domain.Delta, len(f))
	for collection, documents := range f {
		if !collection.Valid() {
			logrus.WithField("collection", collection).Warn("Coleção desconhecida na carga, ignorando")
			continue
		}
		deltas := make([]domain.Delta, 0, len(documents))
		for _, id := range slices.Sorted(maps.Keys(documents)) {
			deltas = append(deltas, domain.Delta{Kind: domain.DeltaAdded, ID: id, Document: documents[id]})
		}
		out[collection] = deltas
	}
	return out
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	log.Setup(cfg.App.LogLevel)

	f, err := loadFixture(os.Args)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao ler a carga inicial")
	}

	publisher := messaging.NewPublisher(messaging.Config{
		Host:     cfg.AMQP.Host,
		Port:     cfg.AMQP.Port,
		User:     cfg.AMQP.User,
		Password: cfg.AMQP.Password,
		VHost:    cfg.AMQP.VHost,
		UseTLS:   cfg.AMQP.UseTLS,
	}, cfg.AMQP.Exchange)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startTime := time.Now()
	for collection, deltas := range f.batches() {
		body, err := amqpfeed.EncodeBatch(collection, true, deltas)
		if err != nil {
			logrus.WithError(err).WithField("collection", collection).Fatal("Erro ao serializar lote")
		}

		if err := publisher.Publish(ctx, string(collection), body); err != nil {
			logrus.WithError(err).WithField("collection", collection).Fatal("Erro ao publicar lote")
		}

		logrus.WithFields(logrus.Fields{
			"collection": collection,
			"deltas":     len(deltas),
			"exchange":   publisher.Exchange(),
		}).Info("Lote completo publicado")
	}

	logrus.WithField("duration", time.Since(startTime).String()).Info("Carga inicial concluída")
}
