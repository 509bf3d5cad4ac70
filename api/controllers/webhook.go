package controllers

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftdrop-backend/api/responses"
	"github.com/angelmondragon/giftdrop-backend/internal/chat"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

const maxWebhookBody = 1 << 20

// ChatWebhook receives Bot API updates. The path token stands in for a
// signature; a mismatch is answered with 404 so the endpoint does not
// reveal itself. Handler failures still acknowledge the update, because
// the platform retries unacknowledged deliveries and the flow is not
// idempotent at the message level.
func ChatWebhook(router *chat.Router, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "not found"))
			return
		}

		var update telegram.Update
		if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&update); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid update payload"))
			return
		}

		router.HandleUpdate(r.Context(), &update)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
