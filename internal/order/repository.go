package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)

type Repository interface {
	Create(ctx context.Context, ord *Order) (*Order, error)
	GetAllByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Create inserts the order and its items in one transaction and returns the
// order with generated identifiers. Nothing is persisted on error.
func (r *postgresRepository) Create(ctx context.Context, ord *Order) (*Order, error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate order id: %w", err)
	}
	ord.ID = orderID

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op (ErrTxClosed).
	defer func() { _ = tx.Rollback(ctx) }()

	queryOrder := `
		INSERT INTO orders (id, user_id, total, date_created)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.Exec(ctx, queryOrder,
		ord.ID,
		ord.UserID,
		ord.Total,
		ord.DateCreated,
	)
	if err != nil {
		return nil, mapConstraintError(fmt.Errorf("repository: failed to insert order: %w", err))
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, price_per_unit, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range ord.Items {
		item := &ord.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return nil, fmt.Errorf("repository: failed to generate order item id: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = ord.ID

		_, err = tx.Exec(ctx, queryItem,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.PricePerUnit,
			item.Quantity,
		)
		if err != nil {
			return nil, mapConstraintError(fmt.Errorf("repository: failed to insert order item for order %s: %w", ord.ID, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Stringer("order_id", ord.ID).Msg("repository: failed to commit order transaction")
		return nil, fmt.Errorf("repository: failed to commit transaction: %w", err)
	}

	return ord, nil
}

// GetAllByUserID returns the user's orders with their items, sorted by
// creation time ascending with id as tie-break so listings are deterministic.
func (r *postgresRepository) GetAllByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	ordersQuery := `
		SELECT id, user_id, total, date_created
		FROM orders
		WHERE user_id = $1
		ORDER BY date_created ASC, id ASC
	`

	orderRows, err := r.db.Query(ctx, ordersQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer orderRows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for orderRows.Next() {
		var ord Order
		err := orderRows.Scan(
			&ord.ID,
			&ord.UserID,
			&ord.Total,
			&ord.DateCreated,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user id %s: %w", userID, err)
		}
		ord.Items = make([]OrderItem, 0)
		ordersMap[ord.ID] = &ord
		orderIDs = append(orderIDs, ord.ID)
	}
	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders for user id %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, price_per_unit, quantity
		FROM order_items
		WHERE order_id = ANY($1)
	`
	itemRows, err := r.db.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user id %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		err := itemRows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.PricePerUnit,
			&item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user id %s: %w", userID, err)
		}

		if ord, ok := ordersMap[item.OrderID]; ok {
			ord.Items = append(ord.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items for user id %s: %w", userID, err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}

	return result, nil
}

// mapConstraintError translates foreign-key violations on order inserts into
// the not-found sentinels, so a user or product deleted between the service
// checks and the insert surfaces the same way as one that never existed.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.ForeignKeyViolation {
		return err
	}

	switch {
	case strings.Contains(pgErr.ConstraintName, "user_id"):
		return ErrUserNotFound
	case strings.Contains(pgErr.ConstraintName, "product_id"):
		return ErrProductNotFound
	default:
		return err
	}
}
