package dbhelper

import (
	"errors"

	"github.com/recetario/apiv1/models"
	"gorm.io/gorm"
)

// ErrDuplicateEmail is returned when registration hits an email that is
// already taken. The store pre-checks so callers get this instead of a raw
// driver uniqueness violation.
var ErrDuplicateEmail = errors.New("el correo ya está registrado")

// UserStore persists user identity, password hash and TOTP enrollment state.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(email, passwordHash, displayName string) (*models.User, error) {
	existing, err := s.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
	}
	if result := s.db.Create(&user); result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail returns (nil, nil) when no user has the email.
func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	var user models.User
	result := s.db.Where("email = ?", email).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByID returns (nil, nil) when the id is unknown.
func (s *UserStore) FindByID(id uint) (*models.User, error) {
	var user models.User
	result := s.db.First(&user, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// UpdateUser applies a partial update; fields absent from the map stay
// unchanged. Returns the reloaded row.
func (s *UserStore) UpdateUser(id uint, fields map[string]interface{}) (*models.User, error) {
	result := s.db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	return s.FindByID(id)
}

// ListUsers returns every registered user without password hashes.
func (s *UserStore) ListUsers() ([]models.User, error) {
	var users []models.User
	result := s.db.
		Select("id", "email", "display_name", "created_at", "totp_enabled", "totp_method").
		Order("created_at DESC").
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}
