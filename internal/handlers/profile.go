package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalboard/server/internal/middleware"
	"github.com/vitalboard/server/internal/services"
	"github.com/vitalboard/server/pkg/errors"
	"github.com/vitalboard/server/pkg/response"
)

// ProfileHandler exposes the authenticated account's dashboard profile.
type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	email := middleware.SessionEmail(c)
	if email == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"favorites": profile.Favorites})
}

// An empty list is a valid value: it clears all favorites.
type favoritesRequest struct {
	Favorites []string `json:"favorites" validate:"max=200,dive,max=100"`
}

// PUT /api/profile/favorites
//
// Returns 202: the write is coalesced and lands shortly after the
// client's toggle burst settles.
func (h *ProfileHandler) PutFavorites(c *gin.Context) {
	email := middleware.SessionEmail(c)
	if email == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req favoritesRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.profiles.SetFavorites(c.Request.Context(), email, req.Favorites); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"accepted": true})
}
