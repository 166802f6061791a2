package services

import (
	"context"
	"fmt"

	"github.com/khatanna/salon-service/internal/config"
	"github.com/khatanna/salon-service/internal/database"
	"github.com/khatanna/salon-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ReportService lee visitas, usuarios y gastos del almacén y produce los
// reportes en PDF. Toda la agregación ocurre sobre datos ya leídos; durante
// la generación no se vuelve a tocar el almacén.
type ReportService struct {
	visitRepo  *database.VisitRepository
	billRepo   *database.BillRepository
	userRepo   *database.UserRepository
	aggregator *Aggregator
	generator  *ReportGenerator
	cfg        *config.Config
	logger     *logrus.Logger
}

// NewReportService crea una nueva instancia del servicio de reportes
func NewReportService(
	visitRepo *database.VisitRepository,
	billRepo *database.BillRepository,
	userRepo *database.UserRepository,
	cfg *config.Config,
	logger *logrus.Logger,
) *ReportService {
	return &ReportService{
		visitRepo:  visitRepo,
		billRepo:   billRepo,
		userRepo:   userRepo,
		aggregator: NewAggregator(cfg.Report.AfternoonStylistUID),
		generator:  NewReportGenerator(cfg, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// reportInput reúne todo lo que los reportes necesitan del almacén
type reportInput struct {
	visits []models.Visit
	users  map[string]models.User
	bills  []models.Bill
}

func (s *ReportService) fetch(ctx context.Context, tenantID string, rng models.DateRange) (*reportInput, error) {
	visits, err := s.visitRepo.GetVisits(ctx, tenantID, rng)
	if err != nil {
		return nil, fmt.Errorf("error fetching visits for report: %w", err)
	}
	bills, err := s.billRepo.GetBills(ctx, tenantID, "", rng)
	if err != nil {
		return nil, fmt.Errorf("error fetching bills for report: %w", err)
	}
	users, err := s.userRepo.GetUsers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error fetching users for report: %w", err)
	}

	usersByID := make(map[string]models.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}
	return &reportInput{visits: visits, users: usersByID, bills: bills}, nil
}

// DailyReport genera el reporte multi-página agrupado por día.
// Retorna el PDF y el nombre de archivo sugerido.
func (s *ReportService) DailyReport(ctx context.Context, tenantID string, rng models.DateRange) ([]byte, string, error) {
	input, err := s.fetch(ctx, tenantID, rng)
	if err != nil {
		return nil, "", err
	}

	pages := s.aggregator.DailyPages(input.visits, input.users, input.bills)
	data, err := s.generator.RenderDaily(pages, s.cfg.TenantDisplayName(tenantID))
	if err != nil {
		return nil, "", err
	}
	return data, "Reporte.pdf", nil
}

// MonthlyReport genera el resumen mensual de una sola página
func (s *ReportService) MonthlyReport(ctx context.Context, tenantID string, rng models.DateRange) ([]byte, string, error) {
	input, err := s.fetch(ctx, tenantID, rng)
	if err != nil {
		return nil, "", err
	}

	summary := s.aggregator.Monthly(input.visits, input.users, input.bills)
	data, err := s.generator.RenderMonthly(summary, s.cfg.TenantDisplayName(tenantID))
	if err != nil {
		return nil, "", err
	}

	fileName := "Reporte.pdf"
	if len(input.visits) > 0 {
		fileName = fmt.Sprintf("Reporte-%s.pdf", input.visits[0].Date.Format("January-2006"))
	}
	return data, fileName, nil
}

// RatingsReport genera el reporte de calificaciones
func (s *ReportService) RatingsReport(ctx context.Context, tenantID string, rng models.DateRange) ([]byte, string, error) {
	input, err := s.fetch(ctx, tenantID, rng)
	if err != nil {
		return nil, "", err
	}

	summary := s.aggregator.Ratings(input.visits)
	data, err := s.generator.RenderRatings(summary, s.cfg.TenantDisplayName(tenantID))
	if err != nil {
		return nil, "", err
	}
	return data, "Reporte_Calificaciones.pdf", nil
}
