package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all routes. Route shapes mirror the public API:
// /users for the directory, /products for the catalog plus the two
// payment endpoints hanging off it.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestID)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	r.HandleFunc("/users", h.CreateUser).Methods("POST")
	r.HandleFunc("/users", h.ListUsers).Methods("GET")
	r.HandleFunc("/users/{id}", h.UpdateUser).Methods("PUT")
	r.HandleFunc("/users/{id}", h.DeleteUser).Methods("DELETE")
	r.HandleFunc("/users/login", h.Login).Methods("POST")

	products := r.PathPrefix("/products").Subrouter()
	products.HandleFunc("", h.Authenticate(h.ListProducts)).Methods("GET")
	products.HandleFunc("", h.RequireAdmin(h.CreateProduct)).Methods("POST")

	// Fixed paths before the {id} catch-all.
	products.HandleFunc("/checkout-session/{id}", h.Authenticate(h.CreateCheckoutSession)).Methods("POST")
	products.HandleFunc("/webhook", h.Webhook).Methods("POST")

	products.HandleFunc("/{id}", h.Authenticate(h.GetProduct)).Methods("GET")
	products.HandleFunc("/{id}", h.RequireAdmin(h.UpdateProduct)).Methods("PUT")
	products.HandleFunc("/{id}", h.RequireAdmin(h.DeleteProduct)).Methods("DELETE")

	return r
}
