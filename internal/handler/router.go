package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/quickmart-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса квикмарт.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.GetProducts)
		r.Get("/{productID}", h.GetProduct)
	})

	r.Route("/api/cart/{userID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddItem)
		r.Put("/update", h.UpdateItem)
		r.Delete("/remove/{productID}", h.RemoveItem)
		r.Delete("/clear", h.ClearCart)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/create", h.CreateOrder)
		r.Get("/user/{userID}", h.GetUserOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Put("/{orderID}/status", h.UpdateOrderStatus)
		r.Put("/{orderID}/assign-partner", h.AssignPartner)
		r.Get("/{orderID}/track", h.TrackOrder)
	})

	r.Route("/api/payment", func(r chi.Router) {
		r.Post("/create-order", h.CreatePaymentOrder)
		r.Post("/verify", h.VerifyPayment)
		r.Post("/simulate-success", h.SimulatePaymentSuccess)
		r.Get("/methods", h.GetPaymentMethods)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
