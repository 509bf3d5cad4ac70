package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/giftdrop-backend/api/responses"
	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

// ItemView is the REST shape of a catalog item.
type ItemView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Description string  `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

func itemView(item *models.CatalogItem) ItemView {
	return ItemView{
		ID:          item.ID.String(),
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
		ImageURL:    item.ImageURL,
	}
}

// ListItems returns the catalog.
func ListItems(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.Items(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]ItemView, 0, len(items))
		for i := range items {
			views = append(views, itemView(&items[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

type createItemRequest struct {
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// CreateItem adds a catalog item.
func CreateItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid JSON body"))
			return
		}
		item, err := svc.AddItem(r.Context(), catalog.AddItemInput{
			Name:        req.Name,
			Price:       req.Price,
			Description: req.Description,
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, itemView(item))
	}
}
