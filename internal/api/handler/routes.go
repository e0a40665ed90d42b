package handler

import (
	"net/http"
	"time"

	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/api/handler/router"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/aggregating"
	"github.com/vfg2006/pos-sync-engine/pkg/middleware"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

func Snapshots(reader SnapshotReader) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/snapshots/:collection",
			Method:      http.MethodGet,
			Handler:     GetSnapshot(reader),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func Aggregates(aggregator aggregating.Aggregator, reader SnapshotReader) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/aggregates/:kind",
			Method:      http.MethodGet,
			Handler:     GetAggregate(aggregator, reader),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func Debug(sources DebugSources) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/debug",
			Method:      http.MethodGet,
			Handler:     GetDebug(sources),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}

func Reports(reportRepo repository.DailyReportRepository, location *time.Location) []router.Route {
	if reportRepo == nil {
		return nil
	}
	return []router.Route{
		{
			Path:        "/v1/reports/daily",
			Method:      http.MethodGet,
			Handler:     ListDailyReports(reportRepo, location),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/cron/:type/run",
			Method:      http.MethodPost,
			Handler:     RunCronJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/cron/status",
			Method:      http.MethodGet,
			Handler:     GetCronStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}
