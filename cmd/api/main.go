package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed/amqpfeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed/memfeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/database/sqldb"
	"github.com/vfg2006/pos-sync-engine/infrastructure/messaging"
	"github.com/vfg2006/pos-sync-engine/infrastructure/notifier"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/api"
	"github.com/vfg2006/pos-sync-engine/internal/api/handler"
	"github.com/vfg2006/pos-sync-engine/internal/config"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/engine"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
	"github.com/vfg2006/pos-sync-engine/internal/scheduler"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/authenticating"
	"github.com/vfg2006/pos-sync-engine/pkg/log"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	log.Setup(cfg.App.LogLevel)
	logrus.Infof("Nível de log configurado para: %s", logrus.GetLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messagingConfig := messaging.Config{
		Host:     cfg.AMQP.Host,
		Port:     cfg.AMQP.Port,
		User:     cfg.AMQP.User,
		Password: cfg.AMQP.Password,
		VHost:    cfg.AMQP.VHost,
		UseTLS:   cfg.AMQP.UseTLS,
	}

	// Cache offline e relatórios; sem banco o motor segue apenas em memória
	var (
		cacheRepo  repository.SnapshotCacheRepository
		reportRepo repository.DailyReportRepository
	)
	if cfg.Cache.Enabled {
		conn, err := sqlconn(ctx, cfg.Cache)
		if err != nil {
			logrus.WithFields(sqldb.ErrorFields(err)).WithError(err).Warn("Cache offline indisponível, seguindo apenas em memória")
		} else {
			defer conn.Close()
			cacheRepo = repository.NewSnapshotCacheRepository(conn)
			reportRepo = repository.NewDailyReportRepository(conn)
		}
	}

	session := identity.NewSession(cfg.App.SessionPrincipal)
	authenticator := authenticating.NewService(cfg.SecretKey, session)

	recorder := diagnostics.NewRecorder(cfg.Diagnostics.RecorderSize)
	sinks := diagnostics.Multi{diagnostics.LogSink{}, recorder}
	if cfg.Diagnostics.PublishEnabled {
		publisher := messaging.NewPublisher(messagingConfig, cfg.Diagnostics.Exchange)
		defer publisher.Close()
		diagnosticsSink := messaging.NewDiagnosticsSink(publisher, 0)
		defer diagnosticsSink.Close()
		sinks = append(sinks, diagnosticsSink)
	}

	eng := engine.New(engine.Deps{
		Subscriber:   subscriber(cfg, messagingConfig),
		Cache:        cacheRepo,
		Sink:         sinks,
		Identity:     session,
		DayWindow:    cfg.Aggregation.DayWindow,
		MaxDayWindow: cfg.Aggregation.MaxDayWindow,
		Location:     cfg.Aggregation.Location,
		Collections:  collections(cfg.Feed.Collections),
	})

	if cfg.Notify.Enabled {
		publisher := messaging.NewPublisher(messagingConfig, cfg.Notify.Exchange)
		defer publisher.Close()

		orderNotifier := notifier.NewOrderNotifier(publisher, cfg.Notify.Topic, eng.Store().Tables)
		orderNotifier.Start(ctx)
		defer orderNotifier.Close()

		eng.OnNewOrder(orderNotifier.NotifyNewOrder)
		logrus.WithField("topic", cfg.Notify.Topic).Info("Notificações de novos pedidos habilitadas")
	}

	if err := eng.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("Erro ao iniciar o motor de sincronização")
	}
	defer eng.Close()

	cronServices := handler.CronJobServices{}
	if reportRepo != nil {
		reportService := scheduler.NewDailyRevenueReportService(eng.Store(), reportRepo, cfg.Aggregation.Location, cfg)
		if err := reportService.Start(ctx); err != nil {
			logrus.WithError(err).Error("Erro ao iniciar o agendador do fechamento diário de receita")
		} else {
			logrus.Info("Agendador do fechamento diário de receita iniciado com sucesso")
		}
		cronServices.DailyRevenueReport = reportService
	}

	server, err := api.New(cfg, api.Deps{
		Engine:        eng,
		Authenticator: authenticator,
		Recorder:      recorder,
		ReportRepo:    reportRepo,
		CronServices:  cronServices,
	})
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// sqlconn abre o banco do cache e garante o esquema
func sqlconn(ctx context.Context, cacheConfig config.Cache) (*sqldb.Connection, error) {
	conn, err := sqldb.NewConnection(ctx, sqldb.Config{
		Driver: cacheConfig.Driver,
		DSN:    cacheConfig.DSN,
	})
	if err != nil {
		return nil, err
	}

	if err := conn.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logrus.WithField("driver", cacheConfig.Driver).Info("Conexão com o banco do cache estabelecida com sucesso")
	return conn, nil
}

func subscriber(cfg *config.Config, messagingConfig messaging.Config) changefeed.Subscriber {
	if cfg.Feed.Driver == config.FeedDriverMemory {
		logrus.Warn("Usando transporte de mudanças em memória; nenhum dado remoto será recebido")
		return memfeed.NewHub()
	}

	return amqpfeed.NewSubscriber(amqpfeed.Config{
		Messaging:      messagingConfig,
		Exchange:       cfg.AMQP.Exchange,
		ReconnectDelay: cfg.AMQP.ReconnectDelay,
	})
}

func collections(names []string) []domain.Collection {
	out := make([]domain.Collection, 0, len(names))
	for _, name := range names {
		collection := domain.Collection(name)
		if !collection.Valid() {
			logrus.WithField("collection", name).Warn("Coleção desconhecida ignorada")
			continue
		}
		out = append(out, collection)
	}
	return out
}
