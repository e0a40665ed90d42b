package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	jsoniter "github.com/json-iterator/go"
	"github.com/vfg2006/pos-sync-engine/infrastructure/database/sqldb"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

//go:generate mockgen -source=daily_report.go -destination=mocks/daily_report.go -package=mocks

const dailyRevenueReportsTable = "daily_revenue_reports"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type DailyReportRepository interface {
	GetByDate(ctx context.Context, date time.Time) (*domain.DailyRevenueReport, error)
	List(ctx context.Context, from, to time.Time) ([]*domain.DailyRevenueReport, error)
	SaveOrUpdate(ctx context.Context, report *domain.DailyRevenueReport) error
}

type dailyReportRepository struct {
	conn sqldb.Executor
}

func NewDailyReportRepository(conn sqldb.Executor) DailyReportRepository {
	return &dailyReportRepository{
		conn: conn,
	}
}

func (r *dailyReportRepository) selectReports() squirrel.SelectBuilder {
	return r.conn.Builder().
		Select(
			"id",
			"report_date",
			"revenue",
			"completed_orders",
			"status_histogram",
			"by_product",
			"created_at",
			"updated_at",
		).
		From(dailyRevenueReportsTable)
}

func (r *dailyReportRepository) GetByDate(ctx context.Context, date time.Time) (*domain.DailyRevenueReport, error) {
	query, args, err := r.selectReports().
		Where(squirrel.Eq{"report_date": reportDate(date)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	report, err := r.scan(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear relatório: %w", err)
	}
	return report, nil
}

func (r *dailyReportRepository) List(ctx context.Context, from, to time.Time) ([]*domain.DailyRevenueReport, error) {
	query, args, err := r.selectReports().
		Where(squirrel.GtOrEq{"report_date": reportDate(from)}).
		Where(squirrel.LtOrEq{"report_date": reportDate(to)}).
		OrderBy("report_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.DailyRevenueReport, 0)
	for rows.Next() {
		report, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear relatório: %w", err)
		}
		reports = append(reports, report)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return reports, nil
}

func (r *dailyReportRepository) SaveOrUpdate(ctx context.Context, report *domain.DailyRevenueReport) error {
	histogram, err := json.Marshal(report.StatusHistogram)
	if err != nil {
		return fmt.Errorf("erro ao serializar histograma: %w", err)
	}
	byProduct, err := json.Marshal(report.ByProduct)
	if err != nil {
		return fmt.Errorf("erro ao serializar receita por produto: %w", err)
	}

	query, args, err := r.conn.Builder().
		Insert(dailyRevenueReportsTable).
		Columns(
			"report_date",
			"revenue",
			"completed_orders",
			"status_histogram",
			"by_product",
		).
		Values(
			reportDate(report.Date),
			report.Revenue.StringFixed(2),
			report.CompletedOrders,
			string(histogram),
			string(byProduct),
		).
		Suffix(`
			ON CONFLICT (report_date) DO UPDATE SET
				revenue = EXCLUDED.revenue,
				completed_orders = EXCLUDED.completed_orders,
				status_histogram = EXCLUDED.status_histogram,
				by_product = EXCLUDED.by_product,
				updated_at = CURRENT_TIMESTAMP
		`).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir query de inserção: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao executar query de inserção: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *dailyReportRepository) scan(row scanner) (*domain.DailyRevenueReport, error) {
	report := &domain.DailyRevenueReport{}
	var histogram, byProduct string

	err := row.Scan(
		&report.ID,
		&report.Date,
		&report.Revenue,
		&report.CompletedOrders,
		&histogram,
		&byProduct,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(histogram), &report.StatusHistogram); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(byProduct), &report.ByProduct); err != nil {
		return nil, err
	}

	return report, nil
}

// reportDate normaliza para a meia-noite UTC da data civil
func reportDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
