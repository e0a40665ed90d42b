package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/pkg/apiErrors"
	"github.com/vfg2006/pos-sync-engine/pkg/middleware"
)

// CronJobType define o tipo de cron job que será executada
const (
	CronJobTypeDailyRevenueReport = "daily-revenue-report"
	CronJobTypeAll                = "all"
)

// CronJob é satisfeito pelos serviços de scheduler
type CronJob interface {
	TriggerManualSync()
	GetStatus() map[string]any
}

// CronJobServices contém os serviços de cron necessários para executar manualmente
type CronJobServices struct {
	DailyRevenueReport CronJob
}

func isAdmin(r *http.Request) bool {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	return ok && claims.Role == domain.RoleAdmin
}

// RunCronJob executa manualmente uma cron job específica
func RunCronJob(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - RunCronJob")

		if !isAdmin(r) {
			apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Apenas administradores podem executar cron jobs", nil)
			return
		}

		cronType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		if cronType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Tipo de cron job não especificado", nil)
			return
		}

		switch cronType {
		case CronJobTypeDailyRevenueReport, CronJobTypeAll:
			if services.DailyRevenueReport == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Serviço de fechamento diário não disponível", nil)
				return
			}
			services.DailyRevenueReport.TriggerManualSync()
		default:
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Tipo de cron job inválido. Valores aceitos: daily-revenue-report, all", nil)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "Cron job iniciada com sucesso",
			"type":    cronType,
		})
	}
}

// GetCronStatus retorna o status das cron jobs
func GetCronStatus(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - GetCronStatus")

		if !isAdmin(r) {
			apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Apenas administradores podem verificar status de cron jobs", nil)
			return
		}

		status := map[string]any{}
		if services.DailyRevenueReport != nil {
			status[CronJobTypeDailyRevenueReport] = services.DailyRevenueReport.GetStatus()
		}

		writeJSON(w, http.StatusOK, status)
	}
}
