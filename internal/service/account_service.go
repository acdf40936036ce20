package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/vbonduro/breedchat/internal/domain"
)

// userRepository is the subset of store.UserStore that AccountService requires.
type userRepository interface {
	Sync(ctx context.Context, email, supabaseID string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// orderRepository is the subset of store.OrderStore that AccountService requires.
type orderRepository interface {
	Create(ctx context.Context, userID string, items []domain.OrderItem, total float64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
}

type AccountService struct {
	users  userRepository
	orders orderRepository
	logger *slog.Logger
}

func NewAccountService(users userRepository, orders orderRepository, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, orders: orders, logger: logger}
}

// SyncUser records a sign-in and reports whether the user is new.
func (s *AccountService) SyncUser(ctx context.Context, email, supabaseID string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return false, fmt.Errorf("%w: invalid email", ErrInvalid)
	}
	if strings.TrimSpace(supabaseID) == "" {
		return false, fmt.Errorf("%w: supabase_id is required", ErrInvalid)
	}

	created, err := s.users.Sync(ctx, email, supabaseID)
	if err != nil {
		return false, fmt.Errorf("failed to sync user: %w", err)
	}
	s.logger.Info("user synced", "email", email, "created", created)
	return created, nil
}

func (s *AccountService) GetUser(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// PlaceOrder stores an order with status "placed".
func (s *AccountService) PlaceOrder(ctx context.Context, userID string, items []domain.OrderItem, total float64) (*domain.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalid)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalid)
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has quantity %d", ErrInvalid, i, item.Quantity)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: item %d has a negative price", ErrInvalid, i)
		}
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total is negative", ErrInvalid)
	}

	order, err := s.orders.Create(ctx, userID, items, total)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	s.logger.Info("order placed", "order_id", order.ID, "user_id", userID, "items", len(items), "total", total)
	return order, nil
}

func (s *AccountService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
