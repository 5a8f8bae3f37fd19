package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/config"
	"github.com/spec-kit/calculation-service/internal/domain"
	"github.com/spec-kit/calculation-service/internal/events"
	"github.com/spec-kit/calculation-service/internal/observability"
	"github.com/spec-kit/calculation-service/internal/service"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
	"go.uber.org/zap"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memCalcRepo struct {
	mu    sync.Mutex
	calcs map[string]*domain.Calculation
}

func newMemCalcRepo() *memCalcRepo {
	return &memCalcRepo{calcs: make(map[string]*domain.Calculation)}
}

func (r *memCalcRepo) Create(_ context.Context, calc *domain.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	calc.ID = uuid.NewString()
	calc.CreatedAt = time.Now()
	calc.UpdatedAt = calc.CreatedAt
	copied := *calc
	r.calcs[calc.ID] = &copied
	return nil
}

func (r *memCalcRepo) Update(_ context.Context, calc *domain.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calcs[calc.ID]
	if !ok || existing.UserID != calc.UserID {
		return pgx.ErrNoRows
	}
	copied := *calc
	r.calcs[calc.ID] = &copied
	return nil
}

func (r *memCalcRepo) GetByID(_ context.Context, userID, id string) (*domain.Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	calc, ok := r.calcs[id]
	if !ok || calc.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	copied := *calc
	return &copied, nil
}

func (r *memCalcRepo) ListByUser(_ context.Context, userID string) ([]domain.Calculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Calculation
	for _, calc := range r.calcs {
		if calc.UserID == userID {
			result = append(result, *calc)
		}
	}
	return result, nil
}

func (r *memCalcRepo) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	calc, ok := r.calcs[id]
	if !ok || calc.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(r.calcs, id)
	return nil
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: make(map[string]time.Time)}
}

func (f *memRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = until
	return nil
}

func (f *memRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.revoked[jti]
	return ok && time.Now().Before(until), nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "calculation-service-test"},
		Auth: config.AuthConfig{
			AccessSecret:          "access-test-secret",
			RefreshSecret:         "refresh-test-secret",
			AccessTokenTTLMinutes: 30,
			RefreshTokenTTLHours:  1,
			BcryptCost:            bcrypt.MinCost,
		},
	}

	users := newMemUserRepo()
	calcs := newMemCalcRepo()
	revoker := newMemRevoker()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:   users,
		Revoker:    revoker,
		Dispatcher: dispatcher,
	})
	calcService := service.NewCalculationService(calcs, dispatcher)

	resolver := auth.NewResolver(authService.TokenManager(), users, revoker)
	middleware := auth.NewMiddleware(resolver)

	engine := html.New("../../../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine})
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	app.Use(errorMiddleware(logger, metrics))

	authHandler := NewAuthHandler(authService)
	calcHandler := NewCalculationsHandler(calcService)
	pagesHandler := NewPagesHandler(calcService, cfg.App.Name)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/token", authHandler.Token)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", middleware.Handle, authHandler.Me)

	calcGroup := app.Group("/calculations", middleware.Handle)
	calcGroup.Post("/", calcHandler.Create)
	calcGroup.Get("/", calcHandler.List)
	calcGroup.Get("/:id", calcHandler.Get)
	calcGroup.Put("/:id", calcHandler.Update)
	calcGroup.Delete("/:id", calcHandler.Delete)

	app.Get("/", pagesHandler.Index)
	app.Get("/login", pagesHandler.Login)
	app.Get("/register", pagesHandler.Register)

	dashboard := app.Group("/dashboard", middleware.HandlePage)
	dashboard.Get("/", pagesHandler.Dashboard)
	dashboard.Get("/view/:id", pagesHandler.View)
	dashboard.Get("/edit/:id", pagesHandler.Edit)

	return app
}

// errorMiddleware mirrors the production error envelope without pulling in
// the timeout and request logging layers.
func errorMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		domainErr := apperrors.ToDomainError(err)
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
		if domainErr.HTTPStatus >= 500 {
			logger.Error("request failed", zap.Error(domainErr))
		}
		c.Status(domainErr.HTTPStatus)
		return c.JSON(fiber.Map{"error": fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		}})
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doPage(t *testing.T, app *fiber.App, path, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: cookie})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return parsed
}

func registerAndLogin(t *testing.T, app *fiber.App) (accessToken, refreshToken string) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Test",
		"last_name":  "User",
		"email":      "test@example.com",
		"username":   "testuser",
		"password":   "SecurePass123!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"username": "testuser",
		"password": "SecurePass123!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	authData := body["data"].(map[string]any)["auth"].(map[string]any)
	return authData["access_token"].(string), authData["refresh_token"].(string)
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "test@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Test",
		"last_name":  "User",
		"email":      "test@example.com",
		"username":   "testuser",
		"password":   "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Other",
		"last_name":  "User",
		"email":      "test@example.com",
		"username":   "otheruser",
		"password":   "SecurePass123!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"username": "testuser",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	message := body["error"].(map[string]any)["message"].(string)
	assert.Equal(t, "invalid username or password", message)
}

func TestMe(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodGet, "/auth/me", accessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, "testuser", data["username"])
}

func TestMe_Unauthorized(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/auth/me", "not-a-valid-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe_RefreshTokenRejected(t *testing.T) {
	app := newTestApp(t)
	_, refreshToken := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodGet, "/auth/me", refreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	app := newTestApp(t)
	_, refreshToken := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])

	// the old refresh token was rotated out
	resp = doJSON(t, app, http.MethodPost, "/auth/refresh", "", map[string]any{
		"refresh_token": refreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/auth/logout", accessToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/auth/me", accessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCalculations_RequireAuth(t *testing.T) {
	app := newTestApp(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/calculations/"},
		{http.MethodPost, "/calculations/"},
		{http.MethodGet, "/calculations/" + uuid.NewString()},
		{http.MethodPut, "/calculations/" + uuid.NewString()},
		{http.MethodDelete, "/calculations/" + uuid.NewString()},
	} {
		resp := doJSON(t, app, route.method, route.path, "", nil)
		assert.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
	}
}

func TestCalculations_CRUD(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := registerAndLogin(t, app)

	// create
	resp := doJSON(t, app, http.MethodPost, "/calculations/", accessToken, map[string]any{
		"type":   "addition",
		"inputs": []float64{1, 2, 3},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)["data"].(map[string]any)
	calcID := created["id"].(string)
	assert.Equal(t, float64(6), created["result"])

	// list
	resp = doJSON(t, app, http.MethodGet, "/calculations/", accessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeBody(t, resp)["data"].([]any)
	assert.Len(t, items, 1)

	// get
	resp = doJSON(t, app, http.MethodGet, "/calculations/"+calcID, accessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// get unknown
	resp = doJSON(t, app, http.MethodGet, "/calculations/"+uuid.NewString(), accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// update recomputes
	resp = doJSON(t, app, http.MethodPut, "/calculations/"+calcID, accessToken, map[string]any{
		"inputs": []float64{4, 5, 6},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(15), updated["result"])
	assert.Equal(t, "addition", updated["type"])

	// delete
	resp = doJSON(t, app, http.MethodDelete, "/calculations/"+calcID, accessToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/calculations/"+calcID, accessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCalculations_Validation(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := registerAndLogin(t, app)

	// missing inputs
	resp := doJSON(t, app, http.MethodPost, "/calculations/", accessToken, map[string]any{
		"type": "addition",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unsupported operation
	resp = doJSON(t, app, http.MethodPost, "/calculations/", accessToken, map[string]any{
		"type":   "invalid_op",
		"inputs": []float64{1, 2},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// division by zero
	resp = doJSON(t, app, http.MethodPost, "/calculations/", accessToken, map[string]any{
		"type":   "division",
		"inputs": []float64{10, 0},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// invalid id format
	resp = doJSON(t, app, http.MethodGet, "/calculations/invalid-uuid", accessToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenFormLogin(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp := doForm(t, app, "/auth/token", url.Values{
		"username": {"testuser"},
		"password": {"SecurePass123!"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accessCookie string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "access_token" {
			accessCookie = cookie.Value
		}
	}
	assert.NotEmpty(t, accessCookie, "login must set the access_token cookie")

	body := decodeBody(t, resp)
	authData := body["data"].(map[string]any)["auth"].(map[string]any)
	assert.NotEmpty(t, authData["access_token"])
	assert.NotEmpty(t, authData["refresh_token"])
	assert.Equal(t, "bearer", authData["token_type"])
}

func TestTokenFormLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)
	registerAndLogin(t, app)

	resp := doForm(t, app, "/auth/token", url.Values{
		"username": {"testuser"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboard_RedirectsAnonymous(t *testing.T) {
	app := newTestApp(t)

	resp := doPage(t, app, "/dashboard/", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = doPage(t, app, "/dashboard/", "not-a-valid-token")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestDashboard_WithValidCookie(t *testing.T) {
	app := newTestApp(t)
	accessToken, _ := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/calculations/", accessToken, map[string]any{
		"type":   "addition",
		"inputs": []float64{2, 3},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doPage(t, app, "/dashboard/", accessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Welcome, Test")
	assert.Contains(t, string(page), "addition")
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/login", "/register"} {
		resp := doPage(t, app, path, "")
		assert.Equalf(t, http.StatusOK, resp.StatusCode, "GET %s", path)
		resp.Body.Close()
	}
}

func TestCalculations_ScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	firstToken, _ := registerAndLogin(t, app)

	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", map[string]any{
		"first_name": "Second",
		"last_name":  "User",
		"email":      "second@example.com",
		"username":   "seconduser",
		"password":   "SecurePass123!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]any{
		"username": "seconduser",
		"password": "SecurePass123!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	secondAuth := decodeBody(t, resp)["data"].(map[string]any)["auth"].(map[string]any)
	secondToken := secondAuth["access_token"].(string)

	resp = doJSON(t, app, http.MethodPost, "/calculations/", firstToken, map[string]any{
		"type":   "multiplication",
		"inputs": []float64{2, 3},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	calcID := decodeBody(t, resp)["data"].(map[string]any)["id"].(string)

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/calculations/%s", calcID), secondToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
