package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khatanna/salon-service/internal/database"
	"github.com/khatanna/salon-service/internal/models"
	"github.com/khatanna/salon-service/internal/services"
	"github.com/sirupsen/logrus"
)

// API maneja todos los endpoints de la API
type API struct {
	visitRepo     *database.VisitRepository
	billRepo      *database.BillRepository
	userRepo      *database.UserRepository
	visitService  *services.VisitService
	reportService *services.ReportService
	authenticator Authenticator
	logger        *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(
	visitRepo *database.VisitRepository,
	billRepo *database.BillRepository,
	userRepo *database.UserRepository,
	visitService *services.VisitService,
	reportService *services.ReportService,
	authenticator Authenticator,
	logger *logrus.Logger,
) *API {
	return &API{
		visitRepo:     visitRepo,
		billRepo:      billRepo,
		userRepo:      userRepo,
		visitService:  visitService,
		reportService: reportService,
		authenticator: authenticator,
		logger:        logger,
	}
}

// dateRangeFromQuery parsea los parámetros from/to (formato 2006-01-02)
func dateRangeFromQuery(c *gin.Context) (models.DateRange, error) {
	from, err := time.ParseInLocation("2006-01-02", c.Query("from"), time.Local)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid 'from' date: %w", err)
	}
	to, err := time.ParseInLocation("2006-01-02", c.Query("to"), time.Local)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid 'to' date: %w", err)
	}
	return models.DateRange{From: from, To: to}, nil
}

// respondError traduce los errores centinela del repositorio a HTTP
func (api *API) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewNotFoundError(err.Error()))
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusForbidden, models.NewForbiddenError(err.Error()))
	default:
		api.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, models.NewInternalError(message))
	}
}

// GetVisits lista las visitas del tenant en un rango de fechas
func (api *API) GetVisits(c *gin.Context) {
	rng, err := dateRangeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid date range", []models.ErrorDetail{
			{Field: "from/to", Issue: err.Error()},
		}))
		return
	}

	visits, err := api.visitRepo.GetVisits(c.Request.Context(), tenantID(c), rng)
	if err != nil {
		api.respondError(c, err, "Error listing visits")
		return
	}
	c.JSON(http.StatusOK, visits)
}

// GetVisit obtiene una visita por id
func (api *API) GetVisit(c *gin.Context) {
	visit, err := api.visitRepo.GetVisitByID(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err, "Error retrieving visit")
		return
	}
	if visit == nil {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("Visit not found"))
		return
	}
	c.JSON(http.StatusOK, visit)
}

// CreateVisit crea una visita nueva con sus pagos
func (api *API) CreateVisit(c *gin.Context) {
	var req models.VisitCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return
	}

	// la identidad autenticada estampa createdByUid, no el cliente
	req.CreatedByUID = identity(c).UID

	if err := api.visitRepo.CreateVisit(c.Request.Context(), tenantID(c), &req); err != nil {
		api.respondError(c, err, "Error creating visit")
		return
	}
	c.Status(http.StatusCreated)
}

// EditVisit actualiza los campos descriptivos de una visita
func (api *API) EditVisit(c *gin.Context) {
	var req models.VisitEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return
	}

	if err := api.visitRepo.EditVisit(c.Request.Context(), tenantID(c), c.Param("id"), &req); err != nil {
		api.respondError(c, err, "Error editing visit")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteVisit elimina una visita definitivamente
func (api *API) DeleteVisit(c *gin.Context) {
	if err := api.visitRepo.DeleteVisit(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		api.respondError(c, err, "Error deleting visit")
		return
	}
	c.Status(http.StatusNoContent)
}

type stateRequest struct {
	State string `json:"state" binding:"required"`
}

// ChangeVisitState cambia el estado del ciclo de vida de una visita
func (api *API) ChangeVisitState(c *gin.Context) {
	var req stateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "state", Issue: err.Error()},
		}))
		return
	}

	if err := api.visitRepo.ChangeState(c.Request.Context(), tenantID(c), c.Param("id"), req.State); err != nil {
		api.respondError(c, err, "Error changing visit state")
		return
	}
	c.Status(http.StatusNoContent)
}

type ratingRequest struct {
	Rating models.Rating `json:"rating" binding:"required"`
}

// RateVisit registra la calificación del dueño de la mascota
func (api *API) RateVisit(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Rating.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid rating", []models.ErrorDetail{
			{Field: "rating", Issue: "must be one of great, medium, bad"},
		}))
		return
	}

	if err := api.visitRepo.RateVisit(c.Request.Context(), tenantID(c), c.Param("id"), req.Rating); err != nil {
		api.respondError(c, err, "Error rating visit")
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleVisitService invierte el marcador de un servicio de la visita,
// atribuyéndolo a la identidad autenticada
func (api *API) ToggleVisitService(c *gin.Context) {
	name := models.ServiceName(c.Param("service"))
	if !name.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid service name", []models.ErrorDetail{
			{Field: "service", Issue: "must be one of choped, bathed, brushed"},
		}))
		return
	}

	err := api.visitRepo.ToggleService(c.Request.Context(), tenantID(c), c.Param("id"), identity(c).UID, name)
	if err != nil {
		api.respondError(c, err, "Error toggling visit service")
		return
	}
	c.Status(http.StatusNoContent)
}

type consentRequest struct {
	Data string `json:"data" binding:"required"`
}

// SetVisitConsent escribe el blob de un nodo de consentimiento
func (api *API) SetVisitConsent(c *gin.Context) {
	node := models.ConsentNode(c.Param("node"))
	if !node.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid consent node", []models.ErrorDetail{
			{Field: "node", Issue: "must be primaryConsent or secondaryConsent"},
		}))
		return
	}

	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "data", Issue: err.Error()},
		}))
		return
	}

	if err := api.visitRepo.SetConsent(c.Request.Context(), tenantID(c), c.Param("id"), node, req.Data); err != nil {
		api.respondError(c, err, "Error setting consent")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadConsentDocument sube el documento firmado de un consentimiento y
// retorna su URL de descarga
func (api *API) UploadConsentDocument(c *gin.Context) {
	node := models.ConsentNode(c.Param("node"))
	if !node.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid consent node", []models.ErrorDetail{
			{Field: "node", Issue: "must be primaryConsent or secondaryConsent"},
		}))
		return
	}

	visit, err := api.visitRepo.GetVisitByID(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err, "Error retrieving visit")
		return
	}
	if visit == nil {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("Visit not found"))
		return
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil || len(content) == 0 {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Empty document body", nil))
		return
	}

	url, err := api.visitService.SaveDocument(c.Request.Context(), tenantID(c), visit, content, identity(c).UID, node)
	if err != nil {
		api.respondError(c, err, "Error uploading consent document")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// GetBills lista los gastos del tenant en un rango de fechas
func (api *API) GetBills(c *gin.Context) {
	rng, err := dateRangeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid date range", []models.ErrorDetail{
			{Field: "from/to", Issue: err.Error()},
		}))
		return
	}

	bills, err := api.billRepo.GetBills(c.Request.Context(), tenantID(c), c.Query("user_id"), rng)
	if err != nil {
		api.respondError(c, err, "Error listing bills")
		return
	}
	c.JSON(http.StatusOK, bills)
}

// CreateBill registra un gasto nuevo atribuido a la identidad autenticada
func (api *API) CreateBill(c *gin.Context) {
	var req models.BillCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
			{Field: "body", Issue: err.Error()},
		}))
		return
	}
	req.UserUID = identity(c).UID

	if err := api.billRepo.CreateBill(c.Request.Context(), tenantID(c), &req); err != nil {
		api.respondError(c, err, "Error creating bill")
		return
	}
	c.Status(http.StatusCreated)
}

// GetUsers lista los usuarios del tenant y los pendientes de asignación
func (api *API) GetUsers(c *gin.Context) {
	users, err := api.userRepo.GetUsers(c.Request.Context(), tenantID(c))
	if err != nil {
		api.respondError(c, err, "Error listing users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// RegisterUser da de alta la ficha del usuario autenticado. El usuario queda
// sin tenant y deshabilitado hasta que un dueño lo asigne.
func (api *API) RegisterUser(c *gin.Context) {
	id := identity(c)

	existing, err := api.userRepo.GetUserByEmail(c.Request.Context(), id.Email)
	if err != nil {
		api.respondError(c, err, "Error checking existing user")
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, existing)
		return
	}

	user := &models.User{
		ID:       id.UID,
		Name:     id.Name,
		Email:    id.Email,
		PhotoURL: id.PhotoURL,
		Owner:    false,
		Allowed:  false,
		TenantID: "",
	}
	if err := api.userRepo.CreateUser(c.Request.Context(), user); err != nil {
		api.respondError(c, err, "Error registering user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ToggleUserOwner invierte el privilegio de dueño de un usuario del tenant
func (api *API) ToggleUserOwner(c *gin.Context) {
	if err := api.userRepo.ToggleOwner(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		api.respondError(c, err, "Error toggling owner flag")
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleUserAllowed invierte la habilitación de acceso de un usuario del tenant
func (api *API) ToggleUserAllowed(c *gin.Context) {
	if err := api.userRepo.ToggleAllowed(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		api.respondError(c, err, "Error toggling allowed flag")
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignUserTenant asigna un usuario pendiente al tenant del llamador
func (api *API) AssignUserTenant(c *gin.Context) {
	if err := api.userRepo.AssignTenant(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		api.respondError(c, err, "Error assigning tenant")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUserAvatar retorna la URL de la foto de un usuario del tenant
func (api *API) GetUserAvatar(c *gin.Context) {
	url, err := api.userRepo.GetAvatarURL(c.Request.Context(), tenantID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err, "Error retrieving avatar")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DailyReport genera y descarga el reporte diario multi-página
func (api *API) DailyReport(c *gin.Context) {
	api.serveReport(c, api.reportService.DailyReport)
}

// MonthlyReport genera y descarga el resumen mensual
func (api *API) MonthlyReport(c *gin.Context) {
	api.serveReport(c, api.reportService.MonthlyReport)
}

// RatingsReport genera y descarga el reporte de calificaciones
func (api *API) RatingsReport(c *gin.Context) {
	api.serveReport(c, api.reportService.RatingsReport)
}

// serveReport ejecuta un generador de reportes y responde el PDF como adjunto
func (api *API) serveReport(c *gin.Context, generate func(ctx context.Context, tenantID string, rng models.DateRange) ([]byte, string, error)) {
	rng, err := dateRangeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid date range", []models.ErrorDetail{
			{Field: "from/to", Issue: err.Error()},
		}))
		return
	}

	data, fileName, err := generate(c.Request.Context(), tenantID(c), rng)
	if err != nil {
		api.respondError(c, err, "Error generating report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/pdf", data)
}
