package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/khatanna/salon-service/internal/auth"
	"github.com/khatanna/salon-service/internal/config"
	"github.com/khatanna/salon-service/internal/database"
	"github.com/khatanna/salon-service/internal/models"
	"github.com/khatanna/salon-service/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	identity *auth.Identity
	err      error
}

func (f *fakeAuthenticator) Authenticate(token string) (*auth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type testEnv struct {
	router   *gin.Engine
	userRepo *database.UserRepository
	authn    *fakeAuthenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := database.NewTreeStore(&database.Redis{Client: client}, logger, database.DefaultIndexRules()...)
	visitRepo := database.NewVisitRepository(store, logger)
	billRepo := database.NewBillRepository(store, logger)
	userRepo := database.NewUserRepository(store, logger)

	cfg := &config.Config{
		Report: config.ReportConfig{
			DefaultTenantName: "Puro Amor Arte Canino",
		},
	}
	visitService := services.NewVisitService(visitRepo, nil, logger)
	reportService := services.NewReportService(visitRepo, billRepo, userRepo, cfg, logger)

	authn := &fakeAuthenticator{
		identity: &auth.Identity{UID: "caller-1", Name: "Ana Flores", Email: "ana@example.com"},
	}

	handler := NewAPI(visitRepo, billRepo, userRepo, visitService, reportService, authn, logger)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(handler.AuthMiddleware())
	{
		v1.POST("/users/register", handler.RegisterUser)

		tenant := v1.Group("")
		tenant.Use(handler.TenantMiddleware())
		{
			tenant.GET("/visits", handler.GetVisits)
			tenant.POST("/visits", handler.CreateVisit)
			tenant.GET("/visits/:id", handler.GetVisit)
			tenant.PUT("/visits/:id/state", handler.ChangeVisitState)
			tenant.PUT("/visits/:id/rating", handler.RateVisit)
			tenant.PUT("/visits/:id/services/:service/toggle", handler.ToggleVisitService)

			tenant.GET("/bills", handler.GetBills)
			tenant.POST("/bills", handler.CreateBill)

			tenant.GET("/users", handler.GetUsers)
			tenant.GET("/reports/daily", handler.DailyReport)

			admin := tenant.Group("/users")
			admin.Use(handler.OwnerMiddleware())
			{
				admin.PUT("/:id/allowed/toggle", handler.ToggleUserAllowed)
			}
		}
	}

	return &testEnv{router: router, userRepo: userRepo, authn: authn}
}

// seedCaller da de alta al usuario autenticado como miembro del tenant
func (env *testEnv) seedCaller(t *testing.T, owner bool) {
	t.Helper()
	require.NoError(t, env.userRepo.CreateUser(context.Background(), &models.User{
		ID:       "caller-1",
		Name:     "Ana Flores",
		Email:    "ana@example.com",
		Owner:    owner,
		Allowed:  true,
		TenantID: "CH0001",
	}))
}

func (env *testEnv) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	return recorder
}

func TestMissingTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/visits?from=2026-08-10&to=2026-08-10", nil)
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.authn.err = fmt.Errorf("token expired")

	recorder := env.request(http.MethodGet, "/v1/visits?from=2026-08-10&to=2026-08-10", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestUnassignedUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.userRepo.CreateUser(context.Background(), &models.User{
		ID:    "caller-1",
		Name:  "Ana Flores",
		Email: "ana@example.com",
	}))

	recorder := env.request(http.MethodGet, "/v1/visits?from=2026-08-10&to=2026-08-10", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRegisterUserCreatesPendingRecord(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(http.MethodPost, "/v1/users/register", nil)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &user))
	assert.Equal(t, "caller-1", user.ID)
	assert.False(t, user.Allowed)
	assert.Empty(t, user.TenantID)

	// idempotente: la segunda llamada retorna la ficha existente
	recorder = env.request(http.MethodPost, "/v1/users/register", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreateVisitStampsAuthenticatedCreator(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	payload := map[string]any{
		"pet_name":       "Firulais",
		"owner_name":     "Maria Perez",
		"date":           time.Date(2026, time.August, 10, 9, 30, 0, 0, time.Local).Format(time.RFC3339),
		"price":          "120",
		"created_by_uid": "spoofed-uid",
		"payments": []map[string]any{
			{"method": "CASH", "amount": "50", "date": time.Date(2026, time.August, 10, 9, 30, 0, 0, time.Local).Format(time.RFC3339), "type": "advance"},
		},
	}
	recorder := env.request(http.MethodPost, "/v1/visits", payload)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = env.request(http.MethodGet, "/v1/visits?from=2026-08-10&to=2026-08-10", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var visits []models.Visit
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &visits))
	require.Len(t, visits, 1)
	assert.Equal(t, "caller-1", visits[0].CreatedByUID)
	require.Len(t, visits[0].Payments, 1)
}

func TestGetVisitsRejectsBadRange(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodGet, "/v1/visits?from=hoy&to=2026-08-10", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetVisitNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodGet, "/v1/visits/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestToggleServiceValidatesName(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodPut, "/v1/visits/v1/services/shaved/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = env.request(http.MethodPut, "/v1/visits/missing/services/bathed/toggle", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRateVisitValidatesRating(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodPut, "/v1/visits/v1/rating", map[string]any{"rating": "awesome"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestOwnerMiddlewareForbidsNonOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodPut, "/v1/users/other/allowed/toggle", nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestOwnerCanToggleAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, true)
	require.NoError(t, env.userRepo.CreateUser(context.Background(), &models.User{
		ID:       "staff-2",
		Name:     "Benita",
		Email:    "benita@example.com",
		Allowed:  true,
		TenantID: "CH0001",
	}))

	recorder := env.request(http.MethodPut, "/v1/users/staff-2/allowed/toggle", nil)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	user, err := env.userRepo.GetUserByID(context.Background(), "staff-2")
	require.NoError(t, err)
	assert.False(t, user.Allowed)
}

func TestDailyReportReturnsPDF(t *testing.T) {
	env := newTestEnv(t)
	env.seedCaller(t, false)

	recorder := env.request(http.MethodGet, "/v1/reports/daily?from=2026-08-10&to=2026-08-10", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "Reporte.pdf")
	assert.Equal(t, "%PDF", recorder.Body.String()[:4])
}
