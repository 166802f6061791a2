package services

import (
	"context"
	"fmt"
	"time"

	"github.com/khatanna/salon-service/internal/database"
	"github.com/khatanna/salon-service/internal/models"
	"github.com/sirupsen/logrus"
)

// VisitService orquesta las operaciones de visitas que combinan el árbol
// persistido con el storage de documentos
type VisitService struct {
	visitRepo *database.VisitRepository
	storage   *database.StorageClient
	logger    *logrus.Logger
}

// NewVisitService crea una nueva instancia del servicio
func NewVisitService(visitRepo *database.VisitRepository, storage *database.StorageClient, logger *logrus.Logger) *VisitService {
	return &VisitService{
		visitRepo: visitRepo,
		storage:   storage,
		logger:    logger,
	}
}

// SaveDocument sube el documento de consentimiento firmado de una visita y
// guarda la URL de descarga en el nodo de consentimiento correspondiente.
// Las fallas de subida se propagan con su detalle; no se reintenta.
func (s *VisitService) SaveDocument(ctx context.Context, tenantID string, visit *models.Visit, content []byte, userID string, node models.ConsentNode) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("storage service is not available")
	}
	if !node.IsValid() {
		return "", fmt.Errorf("invalid consent node: %s", node)
	}

	now := time.Now()
	fileName := fmt.Sprintf("consents/%s/%s/%d.pdf", tenantID, visit.ID, now.Unix())
	metadata := map[string]string{
		"filename":    fmt.Sprintf("consentimiento_%s.pdf", visit.PetName),
		"visit_id":    visit.ID,
		"uploaded_by": userID,
		"timestamp":   database.FormatWireTime(now),
	}

	url, err := s.storage.UploadFile(ctx, fileName, content, metadata)
	if err != nil {
		return "", fmt.Errorf("error saving consent document: %w", err)
	}

	if err := s.visitRepo.SetURLConsent(ctx, tenantID, visit.ID, url, node); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"visit_id":  visit.ID,
		"url":       url,
	}).Info("Consent document saved")
	return url, nil
}
