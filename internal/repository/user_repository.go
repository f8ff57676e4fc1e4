package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
)

// ErrUserNotFound indica que el usuario no existe
var ErrUserNotFound = errors.New("usuario no encontrado")

// ErrEmailTaken indica que el email ya está registrado
var ErrEmailTaken = errors.New("el email ya está registrado")

// UserRepository guarda los usuarios en el almacén clave-valor:
// user:{id} contiene el registro y user_email:{email} apunta al id
// para poder buscar por email en el login.
type UserRepository struct {
	store store.KVStore
}

func NewUserRepository(kv store.KVStore) *UserRepository {
	return &UserRepository{store: kv}
}

func userKey(id string) string {
	return "user:" + id
}

func emailKey(email string) string {
	return "user_email:" + email
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	// Verificar que el email no esté registrado
	if _, err := r.store.Get(ctx, emailKey(user.Email)); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, userKey(user.ID), data); err != nil {
		return err
	}
	return r.store.Put(ctx, emailKey(user.Email), []byte(fmt.Sprintf("%q", user.ID)))
}

func (r *UserRepository) GetUserById(ctx context.Context, id string) (*models.User, error) {
	data, err := r.store.Get(ctx, userKey(id))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	data, err := r.store.Get(ctx, emailKey(email))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return r.GetUserById(ctx, id)
}

// UpdateUser reescribe el registro del usuario y su índice por email
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	existing, err := r.GetUserById(ctx, user.ID)
	if err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = existing.CreatedAt
	}
	if user.Password == "" {
		user.Password = existing.Password
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, userKey(user.ID), data); err != nil {
		return err
	}
	return r.store.Put(ctx, emailKey(user.Email), []byte(fmt.Sprintf("%q", user.ID)))
}

// GetAllUserIds devuelve los ids de todos los usuarios registrados.
// Lo usa el actualizador de precios para refrescar cada portafolio.
func (r *UserRepository) GetAllUserIds(ctx context.Context) ([]string, error) {
	values, err := r.store.ScanPrefix(ctx, "user:")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(values))
	for _, data := range values {
		var user models.User
		if err := json.Unmarshal(data, &user); err != nil {
			continue
		}
		if user.ID != "" {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}
