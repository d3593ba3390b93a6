package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/database"
	"github.com/vitalboard/server/internal/middleware"
	"github.com/vitalboard/server/internal/services"
)

func newProfileFixture(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Prepare(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	profiles, err := services.NewProfileService(db, services.WithFlushDelay(time.Hour))
	require.NoError(t, err)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", SessionTTL: time.Hour})
	require.NoError(t, err)

	handler := NewProfileHandler(profiles)

	router := gin.New()
	group := router.Group("/api/profile", middleware.Session(jwt))
	group.GET("", handler.Get)
	group.PUT("/favorites", handler.PutFavorites)

	return router, jwt
}

func profileRequest(t *testing.T, router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: iauth.SessionCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProfileRequiresSession(t *testing.T) {
	router, _ := newProfileFixture(t)

	w := profileRequest(t, router, http.MethodGet, "/api/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = profileRequest(t, router, http.MethodPut, "/api/profile/favorites", `{"favorites":["a"]}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPutFavoritesAcceptedAndReadable(t *testing.T) {
	router, jwt := newProfileFixture(t)

	token, err := jwt.Issue("a@x.com", "Alice")
	require.NoError(t, err)

	w := profileRequest(t, router, http.MethodPut, "/api/profile/favorites", `{"favorites":["bp-trend"]}`, token)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = profileRequest(t, router, http.MethodGet, "/api/profile", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "bp-trend")
}

func TestFavoritesScopedToSessionEmail(t *testing.T) {
	router, jwt := newProfileFixture(t)

	tokenA, err := jwt.Issue("a@x.com", "Alice")
	require.NoError(t, err)
	tokenB, err := jwt.Issue("b@x.com", "Bob")
	require.NoError(t, err)

	w := profileRequest(t, router, http.MethodPut, "/api/profile/favorites", `{"favorites":["alice-card"]}`, tokenA)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = profileRequest(t, router, http.MethodGet, "/api/profile", "", tokenB)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "alice-card")
}

func TestPutFavoritesEmptyListClears(t *testing.T) {
	router, jwt := newProfileFixture(t)

	token, err := jwt.Issue("a@x.com", "Alice")
	require.NoError(t, err)

	w := profileRequest(t, router, http.MethodPut, "/api/profile/favorites", `{"favorites":["one"]}`, token)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = profileRequest(t, router, http.MethodPut, "/api/profile/favorites", `{"favorites":[]}`, token)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = profileRequest(t, router, http.MethodGet, "/api/profile", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "one")
}
