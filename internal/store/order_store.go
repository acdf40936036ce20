package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/breedchat/internal/domain"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create places an order with status "placed".
func (s *OrderStore) Create(ctx context.Context, userID string, items []domain.OrderItem, total float64) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	order := &domain.Order{
		ID:        newID(),
		UserID:    userID,
		Items:     items,
		Total:     total,
		Status:    domain.OrderStatusPlaced,
		CreatedAt: now(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)
	`, order.ID, order.UserID, order.Total, order.Status, order.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, order.ID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.Image); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// ListByUser returns the user's orders, newest first, with their items.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total, status, created_at FROM orders
		WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer closeRows(rows)

	var orders []*domain.Order
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		o := &domain.Order{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT i.order_id, i.product_id, i.name, i.price, i.quantity, i.image
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE o.user_id = ? ORDER BY i.order_id, i.position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer closeRows(itemRows)

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.Image); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return orders, nil
}
