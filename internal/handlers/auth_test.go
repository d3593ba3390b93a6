package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/vitalboard/server/internal/auth"
	"github.com/vitalboard/server/internal/credentials"
	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/internal/secrets"
	"github.com/vitalboard/server/pkg/mail"
)

type stubSecrets struct {
	mu     sync.Mutex
	values map[string]string
}

func newStubSecrets() *stubSecrets {
	return &stubSecrets{values: make(map[string]string)}
}

func (s *stubSecrets) Put(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *stubSecrets) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", secrets.ErrSecretNotFound
	}
	return value, nil
}

func (s *stubSecrets) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (s *stubMailer) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type authFixture struct {
	router  *gin.Engine
	secrets *stubSecrets
	mailer  *stubMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "vitalboard", SessionTTL: time.Hour})
	require.NoError(t, err)

	secretStore := newStubSecrets()
	mailer := &stubMailer{}

	creds, err := credentials.NewService(records.NewMemoryStore(), secretStore, jwt, mailer)
	require.NoError(t, err)

	handler := NewAuthHandler(creds, jwt, iauth.CookieWriter{MaxAge: time.Hour})

	router := gin.New()
	auth := router.Group("/api/auth")
	auth.POST("/send-verification", handler.SendVerification)
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout)
	auth.POST("/reset-password", handler.ResetPassword)
	auth.GET("/session", handler.Session)

	return &authFixture{router: router, secrets: secretStore, mailer: mailer}
}

func (f *authFixture) post(t *testing.T, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authFixture) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authFixture) register(t *testing.T, name, email, password string) {
	t.Helper()

	require.NoError(t, f.secrets.Put(context.Background(), "verify:"+email, "123456", time.Minute))
	w := f.post(t, "/api/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`","code":"123456"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == iauth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestSendVerificationRequiresValidEmail(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post(t, "/api/auth/send-verification", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, f.mailer.sent)
}

func TestSendVerificationStoresCodeAndMails(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post(t, "/api/auth/send-verification", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	code, err := f.secrets.Get(context.Background(), "verify:a@x.com")
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.Len(t, f.mailer.sent, 1)
}

func TestRegisterRejectsInvalidCode(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post(t, "/api/auth/register",
		`{"name":"A","email":"a@x.com","password":"pw123456","code":"999999"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_CODE")
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "a@x.com", "pw123456")

	require.NoError(t, f.secrets.Put(context.Background(), "verify:a@x.com", "123456", time.Minute))
	w := f.post(t, "/api/auth/register",
		`{"name":"B","email":"a@x.com","password":"pw123456","code":"123456"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "EMAIL_ALREADY_REGISTERED")
}

func TestRegisterDoesNotSetSessionCookie(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.secrets.Put(context.Background(), "verify:a@x.com", "123456", time.Minute))
	w := f.post(t, "/api/auth/register",
		`{"name":"Alice","email":"a@x.com","password":"pw123456","code":"123456"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, sessionCookie(w))
}

func TestLoginSetsSessionCookie(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "a@x.com", "pw123456")

	w := f.post(t, "/api/auth/login", `{"email":"a@x.com","password":"pw123456"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email":"a@x.com"`)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
}

func TestLoginFailureSetsNoCookie(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "a@x.com", "pw123456")

	w := f.post(t, "/api/auth/login", `{"email":"a@x.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
	require.Nil(t, sessionCookie(w))
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post(t, "/api/auth/logout", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestSessionEndpointReflectsCookieValidity(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "a@x.com", "pw123456")

	// No cookie.
	w := f.get(t, "/api/auth/session")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)

	// Garbage cookie is not trusted for presence alone.
	w = f.get(t, "/api/auth/session", &http.Cookie{Name: iauth.SessionCookieName, Value: "garbage"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":false`)

	// A real session.
	login := f.post(t, "/api/auth/login", `{"email":"a@x.com","password":"pw123456"}`)
	w = f.get(t, "/api/auth/session", sessionCookie(login))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"authenticated":true`)
	require.Contains(t, w.Body.String(), `"name":"Alice"`)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "Alice", "a@x.com", "old-password")

	require.NoError(t, f.secrets.Put(context.Background(), "verify:a@x.com", "654321", time.Minute))
	w := f.post(t, "/api/auth/reset-password",
		`{"email":"a@x.com","code":"654321","password":"new-password"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post(t, "/api/auth/login", `{"email":"a@x.com","password":"old-password"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, "/api/auth/login", `{"email":"a@x.com","password":"new-password"}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestResetPasswordUnknownAccount(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.secrets.Put(context.Background(), "verify:nobody@x.com", "654321", time.Minute))
	w := f.post(t, "/api/auth/reset-password",
		`{"email":"nobody@x.com","code":"654321","password":"new-password"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "ACCOUNT_NOT_FOUND")
}
