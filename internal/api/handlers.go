package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ecomops/storefront/internal/auth"
	"github.com/ecomops/storefront/internal/fulfill"
	"github.com/ecomops/storefront/internal/gateway"
	"github.com/ecomops/storefront/internal/models"
	"github.com/ecomops/storefront/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

// UserStore is the user directory the handlers consume.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// CatalogStore is the product catalog the handlers consume.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p *models.Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// CheckoutCreator is the narrow gateway capability the checkout endpoint
// needs; production code and test doubles both implement it.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, item *models.Product, payerEmail string) (string, error)
}

// WebhookProcessor runs one webhook delivery through the fulfillment
// pipeline.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, sigHeader string) (fulfill.Outcome, error)
}

type Handler struct {
	users    UserStore
	catalog  CatalogStore
	checkout CheckoutCreator
	workflow WebhookProcessor
	issuer   *auth.Issuer
	logger   *slog.Logger
}

func NewHandler(users UserStore, catalog CatalogStore, checkout CheckoutCreator, workflow WebhookProcessor, issuer *auth.Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		users:    users,
		catalog:  catalog,
		checkout: checkout,
		workflow: workflow,
		issuer:   issuer,
		logger:   logger,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusUnprocessableEntity, "Email and password required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		UserType:     models.UserTypeNormal,
	}
	id, err := h.users.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			respondWithError(w, http.StatusConflict, "Email already registered")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	user.ID = id
	respondWithJSON(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	user := &models.User{
		ID:           id,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"detail": "User deleted successfully"})
}

// Login verifies credentials and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondWithError(w, http.StatusBadRequest, "Invalid email")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondWithError(w, http.StatusBadRequest, "Incorrect password")
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if !req.Price.IsPositive() {
		respondWithError(w, http.StatusUnprocessableEntity, "Positive price required")
		return
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
	}
	id, err := h.catalog.CreateProduct(r.Context(), product)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	product.ID = id
	respondWithJSON(w, http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req models.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if !req.Price.IsPositive() {
		respondWithError(w, http.StatusUnprocessableEntity, "Positive price required")
		return
	}

	product := &models.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
	}
	if err := h.catalog.UpdateProduct(r.Context(), product); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// CreateCheckoutSession builds a provider-hosted checkout redirect for one
// catalog item, denominated from the item's stored price. The logged-in
// user's email is forwarded so the provider can prefill it.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/products/checkout-session/{id}"))
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			httpRequestsTotal.WithLabelValues("POST", "/products/checkout-session/{id}", "404").Inc()
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		httpRequestsTotal.WithLabelValues("POST", "/products/checkout-session/{id}", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	payerEmail := ""
	if principal := PrincipalFromContext(r.Context()); principal != nil {
		payerEmail = principal.Email
	}

	url, err := h.checkout.CreateCheckout(r.Context(), product, payerEmail)
	if err != nil {
		h.logger.Error("checkout session creation failed",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()))
		httpRequestsTotal.WithLabelValues("POST", "/products/checkout-session/{id}", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/products/checkout-session/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

// Webhook receives provider events. Authentication is the signature header,
// not a bearer credential. Once the signature verifies, the response is
// success regardless of downstream render/dispatch outcomes.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/products/webhook"))
	defer timer.ObserveDuration()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/products/webhook", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}

	sigHeader := r.Header.Get("stripe-signature")
	outcome, err := h.workflow.Process(r.Context(), payload, sigHeader)
	if err != nil {
		if errors.Is(err, gateway.ErrSignatureInvalid) {
			httpRequestsTotal.WithLabelValues("POST", "/products/webhook", "400").Inc()
			respondWithError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		// Process only errors on verification failure; anything else would
		// be a programming error, still acknowledged below to avoid provider
		// retry storms.
		h.logger.Error("unexpected webhook error", slog.String("error", err.Error()))
	}

	h.logger.Info("webhook acknowledged",
		slog.String("outcome", string(outcome)),
		slog.String("request_id", RequestIDFromContext(r.Context())))
	httpRequestsTotal.WithLabelValues("POST", "/products/webhook", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
