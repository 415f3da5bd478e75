package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomops/storefront/internal/api"
	"github.com/ecomops/storefront/internal/auth"
	"github.com/ecomops/storefront/internal/fulfill"
	"github.com/ecomops/storefront/internal/gateway"
	"github.com/ecomops/storefront/internal/models"
	"github.com/ecomops/storefront/internal/store"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*models.User{}, nextID: 1}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return 0, store.ErrDuplicateEmail
	}
	u.ID = f.nextID
	f.nextID++
	f.byEmail[u.Email] = u
	return u.ID, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	for _, u := range f.byEmail {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, u *models.User) error { return nil }
func (f *fakeUserStore) DeleteUser(ctx context.Context, id int64) error       { return nil }

type fakeCatalog struct {
	byID map[int64]*models.Product
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	return 1, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, p *models.Product) error { return nil }
func (f *fakeCatalog) DeleteProduct(ctx context.Context, id int64) error          { return nil }

type fakeCheckout struct {
	url      string
	err      error
	gotItem  *models.Product
	gotEmail string
}

func (f *fakeCheckout) CreateCheckout(ctx context.Context, item *models.Product, payerEmail string) (string, error) {
	f.gotItem = item
	f.gotEmail = payerEmail
	return f.url, f.err
}

type fakeWorkflow struct {
	outcome    fulfill.Outcome
	err        error
	gotPayload []byte
	gotSig     string
}

func (f *fakeWorkflow) Process(ctx context.Context, payload []byte, sigHeader string) (fulfill.Outcome, error) {
	f.gotPayload = payload
	f.gotSig = sigHeader
	return f.outcome, f.err
}

type testEnv struct {
	users    *fakeUserStore
	catalog  *fakeCatalog
	checkout *fakeCheckout
	workflow *fakeWorkflow
	issuer   *auth.Issuer
	server   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:    newFakeUserStore(),
		catalog:  &fakeCatalog{byID: map[int64]*models.Product{}},
		checkout: &fakeCheckout{url: "https://checkout.stripe.com/pay/cs_1"},
		workflow: &fakeWorkflow{outcome: fulfill.OutcomeFulfilled},
		issuer:   auth.NewIssuer("test-secret", time.Hour),
	}
	handler := api.NewHandler(env.users, env.catalog, env.checkout, env.workflow, env.issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.server = api.NewRouter(handler)
	return env
}

func (e *testEnv) addUser(t *testing.T, email, password string, userType models.UserType) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	_, err = e.users.CreateUser(context.Background(), &models.User{
		Email: email, PasswordHash: hash, UserType: userType,
	})
	require.NoError(t, err)

	token, err := e.issuer.Issue(&models.User{Email: email, UserType: userType})
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, server http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	env.workflow.err = gateway.ErrSignatureInvalid

	req := httptest.NewRequest("POST", "/products/webhook", bytes.NewReader([]byte("{}")))
	req.Header.Set("stripe-signature", "t=1,v1=bad")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid signature"}`, rr.Body.String())
}

func TestWebhook_AcknowledgesSuccess(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte(`{"type":"checkout.session.completed"}`)

	req := httptest.NewRequest("POST", "/products/webhook", bytes.NewReader(payload))
	req.Header.Set("stripe-signature", "t=1,v1=good")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"success"}`, rr.Body.String())
	assert.Equal(t, payload, env.workflow.gotPayload)
	assert.Equal(t, "t=1,v1=good", env.workflow.gotSig)
}

func TestWebhook_NoCredentialRequired(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.server, "POST", "/products/webhook", "", map[string]string{})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCheckoutSession_Success(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "pay@example.com", "pass", models.UserTypeNormal)
	env.catalog.byID[1] = &models.Product{
		ID: 1, Name: "Bottle", Price: decimal.RequireFromString("99.99"),
	}

	rr := doJSON(t, env.server, "POST", "/products/checkout-session/1", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_1", resp["checkout_url"])

	// The logged-in user's email is forwarded to the gateway.
	assert.Equal(t, "pay@example.com", env.checkout.gotEmail)
	assert.Equal(t, "Bottle", env.checkout.gotItem.Name)
}

func TestCheckoutSession_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "pay@example.com", "pass", models.UserTypeNormal)

	rr := doJSON(t, env.server, "POST", "/products/checkout-session/42", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCheckoutSession_GatewayError(t *testing.T) {
	env := newTestEnv(t)
	token := env.addUser(t, "pay@example.com", "pass", models.UserTypeNormal)
	env.catalog.byID[1] = &models.Product{ID: 1, Name: "Bottle", Price: decimal.NewFromInt(5)}
	env.checkout.url = ""
	env.checkout.err = errors.New("provider rejected the request")

	rr := doJSON(t, env.server, "POST", "/products/checkout-session/1", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCheckoutSession_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rr := doJSON(t, env.server, "POST", "/products/checkout-session/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProducts_AdminOnlyCreate(t *testing.T) {
	env := newTestEnv(t)
	normal := env.addUser(t, "user@example.com", "pass", models.UserTypeNormal)
	admin := env.addUser(t, "admin@example.com", "pass", models.UserTypeAdmin)

	body := models.ProductRequest{Name: "Mug", Price: decimal.RequireFromString("12.50")}

	rr := doJSON(t, env.server, "POST", "/products", normal, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, env.server, "POST", "/products", admin, body)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user@example.com", "correct-horse", models.UserTypeNormal)

	rr := doJSON(t, env.server, "POST", "/users/login", "", models.LoginRequest{
		Email: "user@example.com", Password: "correct-horse",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := env.issuer.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user@example.com", "correct-horse", models.UserTypeNormal)

	rr := doJSON(t, env.server, "POST", "/users/login", "", models.LoginRequest{
		Email: "user@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, env.server, "POST", "/users/login", "", models.LoginRequest{
		Email: "nobody@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	body := models.CreateUserRequest{Email: "dup@example.com", Password: "pass"}

	rr := doJSON(t, env.server, "POST", "/users", "", body)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, env.server, "POST", "/users", "", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	rr := doJSON(t, env.server, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
