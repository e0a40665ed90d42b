package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/api/handler"
	"github.com/vfg2006/pos-sync-engine/internal/api/handler/router"
	"github.com/vfg2006/pos-sync-engine/internal/config"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/engine"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/authenticating"
	"github.com/vfg2006/pos-sync-engine/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	httpServer *http.Server
}

// Deps reúne os serviços expostos pela API
type Deps struct {
	Engine        *engine.Engine
	Authenticator authenticating.Authenticator
	Recorder      *diagnostics.Recorder
	ReportRepo    repository.DailyReportRepository
	CronServices  handler.CronJobServices
}

func New(config *config.Config, deps Deps) (*Server, error) {
	if deps.Engine == nil || deps.Authenticator == nil {
		return nil, fmt.Errorf("engine e autenticador são obrigatórios")
	}

	eng := deps.Engine
	rt := router.New(
		router.WithRoutes(handler.Healthcheck()...),
		router.WithRoutes(handler.Snapshots(eng)...),
		router.WithRoutes(handler.Aggregates(eng.Aggregator(), eng)...),
		router.WithRoutes(handler.Debug(handler.DebugSources{
			Snapshots: eng,
			Interest:  eng.Broker(),
			Recorder:  deps.Recorder,
			Cache:     eng.Persister(),
		})...),
		router.WithRoutes(handler.Reports(deps.ReportRepo, eng.Aggregator().Location())...),
		router.WithRoutes(handler.CronJobs(deps.CronServices)...),
	)

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(config.Server.CorsAllowedOrigins),
		middleware.AuthMiddleware(deps.Authenticator),
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           alice.New(middlewares...).Then(rt),
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	return srv, nil
}

func (s Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run bloqueia até um sinal de término ou o cancelamento do contexto
func (s Server) Run(ctx context.Context) error {
	go func() {
		logrus.WithFields(logrus.Fields{
			"address": s.httpServer.Addr,
		}).Info("Servidor iniciando")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Erro durante a execução do servidor")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case <-done:
		logrus.Info("Sinal de interrupção recebido")
	case <-ctx.Done():
		logrus.Info("Contexto de aplicação cancelado")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logrus.WithField("timeout", shutdownTimeout.String()).Info("Iniciando desligamento gracioso do servidor")

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	logrus.Info("Servidor HTTP desligado com sucesso")
	return nil
}
