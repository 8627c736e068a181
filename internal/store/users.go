package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/horseshoedev/mythrilmerch/internal/models"
)

// userUpdateAllowlist is the only set of fields a profile update may touch.
var userUpdateAllowlist = map[string]bool{
	"name":  true,
	"email": true,
}

// CreateUser inserts a user, failing with ErrConflict when the email is
// already registered. The caller is responsible for hashing the password.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	user := models.User{Email: email, Name: name, PasswordHash: passwordHash}
	err := s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			return fmt.Errorf("user with email %s: %w", email, ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.Pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.Where("email = ?", email).First(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.Pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.First(&user, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateUser applies the allowlisted fields to a user row. Fields outside
// the allowlist are dropped; an update with nothing left is an error.
func (s *Store) UpdateUser(ctx context.Context, id uint, fields map[string]any) error {
	updates := map[string]any{}
	for k, v := range fields {
		if userUpdateAllowlist[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return ErrEmptyUpdate
	}

	return s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
