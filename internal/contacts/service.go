package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

// MaxContactsPerUser bounds the address book size.
const MaxContactsPerUser = 5

// ContactInput captures the mutable delivery address fields.
type ContactInput struct {
	City   string
	Street string
	House  string
	Phone  string
}

// Service exposes delivery contact CRUD scoped to the owning user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input ContactInput) (*models.Contact, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Contact, error)
	Get(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error)
	Update(ctx context.Context, userID uuid.UUID, contactID int64, input ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, userID uuid.UUID, contactID int64) error
}

type service struct {
	repo Repository
}

// NewService builds the contacts service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ContactInput) (*models.Contact, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting contacts")
	}
	if count >= MaxContactsPerUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("at most %d contacts are allowed", MaxContactsPerUser))
	}

	contact := &models.Contact{
		UserID: userID,
		City:   strings.TrimSpace(input.City),
		Street: strings.TrimSpace(input.Street),
		House:  strings.TrimSpace(input.House),
		Phone:  strings.TrimSpace(input.Phone),
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating contact")
	}
	return contact, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing contacts")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error) {
	return s.owned(ctx, userID, contactID)
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, contactID int64, input ContactInput) (*models.Contact, error) {
	contact, err := s.owned(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	contact.City = strings.TrimSpace(input.City)
	contact.Street = strings.TrimSpace(input.Street)
	contact.House = strings.TrimSpace(input.House)
	contact.Phone = strings.TrimSpace(input.Phone)
	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating contact")
	}
	return contact, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, contactID int64) error {
	contact, err := s.owned(ctx, userID, contactID)
	if err != nil {
		return err
	}

	used, err := s.repo.UsedByOrders(ctx, contact.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking contact usage")
	}
	if used {
		return pkgerrors.New(pkgerrors.CodeConflict, "contact is referenced by existing orders")
	}

	if err := s.repo.Delete(ctx, contact.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting contact")
	}
	return nil
}

func (s *service) owned(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if contactID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id is required")
	}
	contact, err := s.repo.FindByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading contact")
	}
	if contact.UserID != userID {
		// hide other users' contacts entirely
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return contact, nil
}

func validateInput(input ContactInput) error {
	if strings.TrimSpace(input.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(input.Street) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "street is required")
	}
	if strings.TrimSpace(input.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	return nil
}
