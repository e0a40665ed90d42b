package scheduler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/config"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/aggregating"
)

const reportSaveTimeout = 30 * time.Second

// ErrOrdersNotReady indica que o primeiro lote de pedidos ainda não chegou
var ErrOrdersNotReady = errors.New("pedidos ainda não sincronizados")

// DailyRevenueReportConfig representa a configuração do fechamento diário
type DailyRevenueReportConfig struct {
	CronSchedule string
	Enabled      bool
}

// DailyRevenueReportService gera e persiste o fechamento de receita do dia anterior
type DailyRevenueReportService struct {
	scheduler           *gocron.Scheduler
	config              DailyRevenueReportConfig
	store               *snapshot.Store
	reportRepo          repository.DailyReportRepository
	location            *time.Location
	now                 func() time.Time
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastReportDate      string
	lastError           string
}

func NewDailyRevenueReportService(
	store *snapshot.Store,
	reportRepo repository.DailyReportRepository,
	location *time.Location,
	appConfig *config.Config,
) *DailyRevenueReportService {
	reportConfig := DailyRevenueReportConfig{
		CronSchedule: appConfig.DailyReport.CronSchedule,
		Enabled:      appConfig.DailyReport.Enabled,
	}

	if location == nil {
		location = time.UTC
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": reportConfig.CronSchedule,
		"enabled":       reportConfig.Enabled,
		"timezone":      location.String(),
	}).Info("Configuração do fechamento diário de receita carregada")

	return &DailyRevenueReportService{
		scheduler:  gocron.NewScheduler(location),
		config:     reportConfig,
		store:      store,
		reportRepo: reportRepo,
		location:   location,
		now:        time.Now,
	}
}

// Start inicia o agendador
func (s *DailyRevenueReportService) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Info("Fechamento diário de receita desabilitado por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador do fechamento diário de receita")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.generateReport()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar fechamento diário de receita: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador do fechamento diário de receita")
		s.scheduler.Stop()
	}()

	return nil
}

// generateReport gera o fechamento de ontem; execuções sobrepostas são ignoradas
func (s *DailyRevenueReportService) generateReport() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Fechamento diário de receita já em andamento, ignorando")
		return
	}
	s.syncRunning = true
	s.lastSyncStartedAt = s.now()
	s.syncMutex.Unlock()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.syncMutex.Unlock()
	}()

	yesterday := s.now().In(s.location).AddDate(0, 0, -1)

	ctx, cancel := context.WithTimeout(context.Background(), reportSaveTimeout)
	defer cancel()

	report, err := s.Generate(ctx, yesterday)

	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	if err != nil {
		s.lastError = err.Error()
		if errors.Is(err, ErrOrdersNotReady) {
			logrus.Warn("Pedidos ainda não sincronizados, fechamento diário adiado")
			return
		}
		logrus.WithError(err).Error("Erro ao gerar fechamento diário de receita")
		return
	}

	s.lastError = ""
	s.lastReportDate = report.Date.Format(time.DateOnly)
	s.lastSyncCompletedAt = s.now()
}

// Generate calcula e persiste o fechamento de um dia civil no fuso de referência
func (s *DailyRevenueReportService) Generate(ctx context.Context, day time.Time) (*domain.DailyRevenueReport, error) {
	report, err := s.Build(day)
	if err != nil {
		return nil, err
	}

	if err := s.reportRepo.SaveOrUpdate(ctx, report); err != nil {
		return nil, fmt.Errorf("erro ao salvar fechamento de %s: %w", report.Date.Format(time.DateOnly), err)
	}

	logrus.WithFields(logrus.Fields{
		"date":             report.Date.Format(time.DateOnly),
		"revenue":          report.Revenue.StringFixed(2),
		"completed_orders": report.CompletedOrders,
		"products":         len(report.ByProduct),
	}).Info("Fechamento diário de receita salvo")

	return report, nil
}

// Build calcula o fechamento sem persistir
func (s *DailyRevenueReportService) Build(day time.Time) (*domain.DailyRevenueReport, error) {
	orders := s.store.Orders.Snapshot()
	if !orders.Ready() {
		return nil, ErrOrdersNotReady
	}
	products := s.store.Products.Snapshot()

	local := day.In(s.location)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	ofDay := createdOn(orders.Values(), date, s.location)

	revenue, err := aggregating.RevenueTotal(ofDay, products)
	if err != nil {
		return nil, err
	}
	histogram, err := aggregating.StatusHistogram(ofDay)
	if err != nil {
		return nil, err
	}
	byProduct, err := aggregating.RevenueByProduct(ofDay, products)
	if err != nil {
		return nil, err
	}

	return &domain.DailyRevenueReport{
		Date:            date,
		Revenue:         revenue,
		CompletedOrders: histogram[domain.OrderStatusCompleted],
		StatusHistogram: histogram,
		ByProduct:       byProduct,
	}, nil
}

// createdOn filtra os pedidos criados na data civil informada
func createdOn(orders iter.Seq[domain.Order], date time.Time, loc *time.Location) iter.Seq[domain.Order] {
	day := date.Format(time.DateOnly)
	return func(yield func(domain.Order) bool) {
		for order := range orders {
			if order.CreatedAt.IsZero() || order.CreatedAt.In(loc).Format(time.DateOnly) != day {
				continue
			}
			if !yield(order) {
				return
			}
		}
	}
}

// TriggerManualSync inicia manualmente o fechamento do dia anterior
func (s *DailyRevenueReportService) TriggerManualSync() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Fechamento diário de receita já em andamento, ignorando solicitação manual")
		return
	}
	s.syncMutex.Unlock()

	logrus.Info("Iniciando fechamento diário de receita manual")
	go s.generateReport()
}

// GetStatus retorna o status atual do agendador
func (s *DailyRevenueReportService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]any{
		"enabled":                s.config.Enabled,
		"cron":                   s.config.CronSchedule,
		"timezone":               s.location.String(),
		"running":                s.syncRunning,
		"last_report_date":       s.lastReportDate,
		"last_error":             s.lastError,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
	}
}
