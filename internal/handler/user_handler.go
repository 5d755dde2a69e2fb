/*
Package handler provides the HTTP handler for user listings.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/logx"
	"parley/internal/pkg/resp"
)

// userListEntry is one row of the user listing, annotated with the user's
// live presence from the hub's registry.
type userListEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	Online    bool      `json:"online"`
}

// HandleListUsers returns every other user, annotated with online status.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := jwt.GetPrincipalFromContext(r)
		if principal == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		callerID, err := uuid.Parse(principal.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		users, err := deps.Store.ListUsersExcept(r.Context(), callerID)
		if err != nil {
			logx.Error(err, "failed to list users")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		entries := make([]userListEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, userListEntry{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				CreatedAt: u.CreatedAt,
				Online:    deps.Hub.IsOnline(u.ID.String()),
			})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": entries,
		})
	}
}
