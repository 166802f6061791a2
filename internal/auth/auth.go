package auth

import (
	"fmt"

	"github.com/khatanna/salon-service/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// Identity representa la identidad del usuario autenticado. Es una fuente de
// solo lectura: el núcleo la recibe como parámetro explícito para estampar
// createdByUid y atribuir trabajos, nunca la busca en un singleton.
type Identity struct {
	UID      string
	Name     string
	Email    string
	PhotoURL string
}

// Service resuelve tokens de sesión contra el proveedor de autenticación
type Service struct {
	client gotrue.Client
	logger *logrus.Logger
}

// NewService crea una nueva instancia del servicio de autenticación
func NewService(cfg *config.SupabaseConfig, logger *logrus.Logger) *Service {
	return &Service{
		client: gotrue.New(cfg.ProjectReference, cfg.AnonKey),
		logger: logger,
	}
}

// Authenticate resuelve un token de acceso a la identidad que lo emitió
func (s *Service) Authenticate(token string) (*Identity, error) {
	user, err := s.client.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("error resolving token: %w", err)
	}
	return identityFromUser(&user.User), nil
}

func identityFromUser(user *types.User) *Identity {
	identity := &Identity{
		UID:   user.ID.String(),
		Email: user.Email,
	}
	if name, ok := user.UserMetadata["full_name"].(string); ok {
		identity.Name = name
	} else if name, ok := user.UserMetadata["name"].(string); ok {
		identity.Name = name
	}
	if photo, ok := user.UserMetadata["avatar_url"].(string); ok {
		identity.PhotoURL = photo
	}
	return identity
}
