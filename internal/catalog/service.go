package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
)

// Service defines catalog operations used by the chat flow and admin API.
type Service interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.CatalogItem, error)
	Item(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
	Items(ctx context.Context) ([]models.CatalogItem, error)
}

// AddItemInput carries the fields an operator supplies for a new item.
type AddItemInput struct {
	Name        string
	Price       int64
	Description string
	ImageURL    *string
}

type service struct {
	repo Repository
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.CatalogItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Price <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be positive")
	}

	item := &models.CatalogItem{
		Name:        name,
		Price:       input.Price,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    input.ImageURL,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create catalog item")
	}
	return created, nil
}

func (s *service) Item(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}
	return item, nil
}

func (s *service) Items(ctx context.Context) ([]models.CatalogItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog items")
	}
	return items, nil
}
