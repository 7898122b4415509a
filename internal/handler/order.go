package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/laptopshop/order-service/internal/order"
)

type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	TotalPrice decimal.Decimal   `json:"total_price"`
	CartItems  []CartItemRequest `json:"cart_items" validate:"required,min=1,dive"`
}

type OrderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     int             `json:"quantity"`
}

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	Total       decimal.Decimal     `json:"total"`
	DateCreated time.Time           `json:"date_created"`
	Items       []OrderItemResponse `json:"items"`
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users/{userID}/orders", h.handleListOrders)
	router.Post("/users/{userID}/orders", h.handleCreateOrder)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	summaries, err := h.svc.ListOrders(r.Context(), userID, identityFromContext(r.Context()))
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to list orders via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to list orders"))
		return
	}

	respondWithJSON(w, http.StatusOK, summaries)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	cart := order.Cart{
		TotalPrice: requestPayload.TotalPrice,
		Items:      make([]order.CartItem, 0, len(requestPayload.CartItems)),
	}
	for _, item := range requestPayload.CartItems {
		productID, err := uuid.FromString(item.ProductID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product_id")
			return
		}
		cart.Items = append(cart.Items, order.CartItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	created, err := h.svc.CreateOrderFromCart(r.Context(), &cart, userID, identityFromContext(r.Context()))
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to create order via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to create order"))
		return
	}

	items := make([]OrderItemResponse, 0, len(created.Items))
	for _, item := range created.Items {
		items = append(items, OrderItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			PricePerUnit: item.PricePerUnit,
			Quantity:     item.Quantity,
		})
	}

	respondWithJSON(w, http.StatusCreated, OrderResponse{
		ID:          created.ID,
		UserID:      created.UserID,
		Total:       created.Total,
		DateCreated: created.DateCreated,
		Items:       items,
	})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "userID")
	userID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("user_id", idParam).Msg("Failed to parse userID parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid userID parameter")
		return uuid.Nil, false
	}
	return userID, true
}

func clientMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, order.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, order.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, order.ErrAccessDenied):
		return "Access denied"
	default:
		return fallback
	}
}
