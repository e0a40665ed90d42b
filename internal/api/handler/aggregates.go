package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/aggregating"
	"github.com/vfg2006/pos-sync-engine/pkg/apiErrors"
	"github.com/vfg2006/pos-sync-engine/pkg/utils"
)

type AggregateResponse struct {
	Kind aggregating.Kind `json:"kind"`
	Data any              `json:"data"`
}

func parseAggregateParams(r *http.Request, aggregator aggregating.Aggregator) (aggregating.Params, error) {
	params := aggregating.Params{}
	query := r.URL.Query()

	if days := query.Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return params, aggregating.ErrInvalidWindow
		}
		params.Days = n
	}

	from, err := utils.ParseDate(query.Get("from"), aggregator.Location())
	if err != nil {
		return params, err
	}
	to, err := utils.ParseDate(query.Get("to"), aggregator.Location())
	if err != nil {
		return params, err
	}
	if from != nil {
		params.From = *from
	}
	if to != nil {
		params.To = *to
	}

	return params, nil
}

// requiredCollections lista as coleções lidas por cada agregado; tipos desconhecidos não exigem nenhuma
func requiredCollections(kind aggregating.Kind) []domain.Collection {
	switch kind {
	case aggregating.KindStatusHistogram:
		return []domain.Collection{domain.CollectionOrders}
	case aggregating.KindRevenueTotal, aggregating.KindRevenueByDay, aggregating.KindRevenueByCategory,
		aggregating.KindRevenueByProduct, aggregating.KindRevenueInRange:
		return []domain.Collection{domain.CollectionOrders, domain.CollectionProducts}
	case aggregating.KindSummary:
		return domain.Collections()
	}
	return nil
}

// notLoaded retorna a primeira coleção que nunca recebeu dados: nem lote remoto nem cópia do cache offline
func notLoaded(reader SnapshotReader, kind aggregating.Kind) (domain.Collection, bool) {
	for _, collection := range requiredCollections(kind) {
		view, ok := reader.View(collection)
		if ok && !view.Ready() && view.Len() == 0 {
			return collection, true
		}
	}
	return "", false
}

// GetAggregate calcula um agregado sobre o estado atual. Enquanto uma coleção necessária
// não tiver dados responde 409 em vez de um zero enganoso.
func GetAggregate(aggregator aggregating.Aggregator, reader SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := aggregating.Kind(httprouter.ParamsFromContext(r.Context()).ByName("kind"))

		params, err := parseAggregateParams(r, aggregator)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Parâmetros inválidos", err.Error())
			return
		}

		if kind == aggregating.KindRevenueInRange && (params.From.IsZero() || params.To.IsZero()) {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Parâmetros from e to são obrigatórios (yyyy-mm-dd)", nil)
			return
		}

		if collection, pending := notLoaded(reader, kind); pending {
			apiErrors.WriteError(w, apiErrors.ErrCollectionNotLoaded, "Coleção ainda não carregada", map[string]any{
				"collection": collection,
			})
			return
		}

		result, err := aggregator.Aggregate(kind, params)
		if err != nil {
			writeAggregateError(w, kind, err)
			return
		}

		writeJSON(w, http.StatusOK, AggregateResponse{Kind: kind, Data: result})
	}
}

func writeAggregateError(w http.ResponseWriter, kind aggregating.Kind, err error) {
	var statusErr *aggregating.UnknownStatusError
	switch {
	case errors.As(err, &statusErr):
		logrus.WithFields(logrus.Fields{
			"kind":     kind,
			"order_id": statusErr.OrderID,
			"status":   statusErr.Status,
		}).Error("Pedido com status desconhecido")
		apiErrors.WriteError(w, apiErrors.ErrUnknownOrderStatus, err.Error(), map[string]any{
			"order_id": statusErr.OrderID,
			"status":   statusErr.Status,
		})
	case errors.Is(err, aggregating.ErrUnknownKind):
		apiErrors.WriteError(w, apiErrors.ErrUnknownAggregate, "Agregado desconhecido", kind)
	case errors.Is(err, aggregating.ErrInvalidWindow), errors.Is(err, aggregating.ErrInvalidRange):
		apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, err.Error(), nil)
	default:
		logrus.WithError(err).WithField("kind", kind).Error("Erro ao calcular agregado")
		apiErr := apiErrors.FromError(err, apiErrors.ErrInternalServer)
		apiErrors.WriteError(w, apiErr.Code, apiErr.Message, nil)
	}
}
