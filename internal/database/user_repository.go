package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/sirupsen/logrus"
)

// UserRepository maneja las operaciones del árbol persistido para User.
// Los usuarios viven en la ruta global users/{userId}; el aislamiento por
// tenant se aplica acá filtrando por el campo tenantId, no por la ruta.
type UserRepository struct {
	store  *TreeStore
	logger *logrus.Logger
}

// NewUserRepository crea una nueva instancia del repositorio
func NewUserRepository(store *TreeStore, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		store:  store,
		logger: logger,
	}
}

const usersRoot = "users"

func userPath(userID string) string {
	return usersRoot + "/" + userID
}

// GetUsers retorna los usuarios visibles para el tenant: los asignados a él
// y los que todavía no tienen tenant (pendientes de alta)
func (r *UserRepository) GetUsers(ctx context.Context, tenantID string) ([]models.User, error) {
	children, err := r.store.QueryRange(ctx, usersRoot, "email", "", "")
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}

	users := make([]models.User, 0, len(children))
	for _, child := range children {
		user := userFromNode(child.Key, child.Node)
		if user.TenantID == tenantID || user.TenantID == "" {
			users = append(users, user)
		}
	}
	return users, nil
}

// GetUserByID obtiene un usuario por id, sin filtro de tenant
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	node, err := r.store.Get(ctx, userPath(userID))
	if err != nil {
		return nil, fmt.Errorf("error reading user: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	user := userFromNode(userID, node)
	return &user, nil
}

// GetUserByEmail busca un usuario por email usando el índice. Retorna
// (nil, nil) si no existe.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	children, err := r.store.QueryEqual(ctx, usersRoot, "email", email)
	if err != nil {
		return nil, fmt.Errorf("error querying user by email: %w", err)
	}
	if len(children) == 0 {
		return nil, nil
	}
	user := userFromNode(children[0].Key, children[0].Node)
	return &user, nil
}

// CreateUser escribe la ficha de un usuario recién autenticado. El tenant
// queda vacío hasta que un dueño lo asigne.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	node := Node{
		"name":     user.Name,
		"email":    user.Email,
		"owner":    strconv.FormatBool(user.Owner),
		"allowed":  strconv.FormatBool(user.Allowed),
		"tenantId": user.TenantID,
	}
	if user.PhotoURL != "" {
		node["photoUrl"] = user.PhotoURL
	}

	if err := r.store.Set(ctx, userPath(user.ID), node); err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User created")
	return nil
}

// GetAvatarURL retorna la URL de la foto de un usuario del tenant
func (r *UserRepository) GetAvatarURL(ctx context.Context, tenantID, userID string) (string, error) {
	user, err := r.loadTenantUser(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	return user.PhotoURL, nil
}

// ToggleOwner invierte el privilegio administrativo de un usuario del tenant
func (r *UserRepository) ToggleOwner(ctx context.Context, tenantID, userID string) error {
	user, err := r.loadTenantUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	if err := r.store.Update(ctx, userPath(userID), map[string]*string{
		"owner": ptr(strconv.FormatBool(!user.Owner)),
	}); err != nil {
		return fmt.Errorf("error toggling owner flag: %w", err)
	}
	return nil
}

// ToggleAllowed invierte la habilitación de acceso de un usuario del tenant
func (r *UserRepository) ToggleAllowed(ctx context.Context, tenantID, userID string) error {
	user, err := r.loadTenantUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	if err := r.store.Update(ctx, userPath(userID), map[string]*string{
		"allowed": ptr(strconv.FormatBool(!user.Allowed)),
	}); err != nil {
		return fmt.Errorf("error toggling allowed flag: %w", err)
	}
	return nil
}

// AssignTenant asigna un usuario pendiente al tenant y lo habilita
func (r *UserRepository) AssignTenant(ctx context.Context, tenantID, userID string) error {
	if _, err := r.GetUserByID(ctx, userID); err != nil {
		return err
	}

	if err := r.store.Update(ctx, userPath(userID), map[string]*string{
		"allowed":  ptr("true"),
		"tenantId": ptr(tenantID),
	}); err != nil {
		return fmt.Errorf("error assigning tenant: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"tenant_id": tenantID,
	}).Info("User assigned to tenant")
	return nil
}

// loadTenantUser lee un usuario y verifica que pertenezca al tenant.
// La mutación se aborta con ErrUnauthorized si el tenant no coincide.
func (r *UserRepository) loadTenantUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TenantID != tenantID {
		return nil, fmt.Errorf("user %s does not belong to tenant %s: %w", userID, tenantID, models.ErrUnauthorized)
	}
	return user, nil
}

func userFromNode(userID string, node Node) models.User {
	owner, _ := strconv.ParseBool(node["owner"])
	allowed, _ := strconv.ParseBool(node["allowed"])
	return models.User{
		ID:       userID,
		Name:     node["name"],
		Email:    node["email"],
		PhotoURL: node["photoUrl"],
		Owner:    owner,
		Allowed:  allowed,
		TenantID: node["tenantId"],
	}
}
