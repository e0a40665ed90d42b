package handler

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/pkg/apiErrors"
	"github.com/vfg2006/pos-sync-engine/pkg/utils"
)

const defaultReportLookbackDays = 30

// ListDailyReports lista os fechamentos persistidos; sem from/to devolve os últimos 30 dias
func ListDailyReports(reportRepo repository.DailyReportRepository, location *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		from, err := utils.ParseDate(query.Get("from"), location)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Data inicial inválida (yyyy-mm-dd)", nil)
			return
		}
		to, err := utils.ParseDate(query.Get("to"), location)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Data final inválida (yyyy-mm-dd)", nil)
			return
		}

		if to == nil {
			now := time.Now().In(location)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, location)
			to = &today
		}
		if from == nil {
			start := to.AddDate(0, 0, -defaultReportLookbackDays)
			from = &start
		}
		if to.Before(*from) {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Data final anterior à inicial", nil)
			return
		}

		reports, err := reportRepo.List(r.Context(), *from, *to)
		if err != nil {
			logrus.WithError(err).Error("Erro ao listar fechamentos diários")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar fechamentos", nil)
			return
		}
		if reports == nil {
			reports = []*domain.DailyRevenueReport{}
		}

		writeJSON(w, http.StatusOK, reports)
	}
}
