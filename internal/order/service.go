package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/laptopshop/order-service/internal/product"
	"github.com/laptopshop/order-service/internal/user"
)

// ErrAccessDenied is returned when the caller's identity does not match the
// order owner's email, or when no identity was supplied at all. A resolved
// but foreign user id deliberately yields this instead of ErrUserNotFound,
// mirroring the information-hiding choice of the original system.
var ErrAccessDenied = errors.New("access denied")

const (
	confirmationSubject = "Order Confirmation"
	confirmationBody    = "Thank you for your order!"
)

// ReceiptGenerator produces a receipt document for an order and returns the
// identifier it was stored under.
type ReceiptGenerator interface {
	Generate(ord *Order, username string) (string, error)
}

// Notifier sends confirmation mail. Errors are reported to the caller; this
// service logs and suppresses them so a broken mail transport never blocks
// order creation.
type Notifier interface {
	Send(to, subject, body string) error
	SendWithAttachment(to, subject, body, attachmentPath string) error
}

type Service interface {
	ListOrders(ctx context.Context, userID uuid.UUID, callerEmail string) ([]OrderSummary, error)
	CreateOrderFromCart(ctx context.Context, cart *Cart, userID uuid.UUID, callerEmail string) (*Order, error)
}

type service struct {
	orders   Repository
	users    user.Repository
	products product.Repository
	receipts ReceiptGenerator
	notifier Notifier
}

func NewService(orders Repository, users user.Repository, products product.Repository, receipts ReceiptGenerator, notifier Notifier) Service {
	return &service{
		orders:   orders,
		users:    users,
		products: products,
		receipts: receipts,
		notifier: notifier,
	}
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, callerEmail string) ([]OrderSummary, error) {
	u, err := s.resolveOwner(ctx, userID, callerEmail)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.GetAllByUserID(ctx, u.ID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		summaries = append(summaries, summarize(&orders[i]))
	}

	return summaries, nil
}

func (s *service) CreateOrderFromCart(ctx context.Context, cart *Cart, userID uuid.UUID, callerEmail string) (*Order, error) {
	u, err := s.resolveOwner(ctx, userID, callerEmail)
	if err != nil {
		return nil, err
	}

	ord := &Order{
		UserID: u.ID,
		// Claimed total, verbatim. Recomputing from item prices would be a
		// behavior change; see DESIGN.md.
		Total:       cart.TotalPrice,
		DateCreated: time.Now().UTC(),
		Items:       make([]OrderItem, 0, len(cart.Items)),
	}

	for _, line := range cart.Items {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				log.Warn().Stringer("product_id", line.ProductID).Msg("service: cart references unknown product")
				return nil, ErrProductNotFound
			}
			log.Error().Err(err).Stringer("product_id", line.ProductID).Msg("service: failed to fetch product in repository")
			return nil, fmt.Errorf("service: failed to fetch product: %w", err)
		}

		ord.Items = append(ord.Items, OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			PricePerUnit: p.Price,
			Quantity:     line.Quantity,
		})
	}

	s.notify(ord, u)

	created, err := s.orders.Create(ctx, ord)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to create order in repository")
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", created.ID).Stringer("user_id", u.ID).Msg("service: order created successfully")

	return created, nil
}

// resolveOwner loads the user and enforces the ownership check: the caller's
// verified identity must equal the user's email. A missing identity is itself
// an authorization failure.
func (s *service) resolveOwner(ctx context.Context, userID uuid.UUID, callerEmail string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			log.Warn().Stringer("user_id", userID).Msg("service: user not found")
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user in repository")
		return nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}

	if callerEmail == "" || callerEmail != u.Email {
		log.Warn().Stringer("user_id", userID).Msg("service: caller identity does not match order owner")
		return nil, ErrAccessDenied
	}

	return u, nil
}

// notify generates the receipt and sends the confirmation mail, best effort.
// Either step failing is logged and suppressed here, the one place that owns
// that policy: the order is persisted regardless.
func (s *service) notify(ord *Order, u *user.User) {
	receiptPath, err := s.receipts.Generate(ord, u.Username)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to generate receipt, sending confirmation without it")
	}

	if receiptPath != "" {
		err = s.notifier.SendWithAttachment(u.Email, confirmationSubject, confirmationBody, receiptPath)
	} else {
		err = s.notifier.Send(u.Email, confirmationSubject, confirmationBody)
	}
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to send order confirmation mail")
	}
}
