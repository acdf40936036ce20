package domain

import "time"

// Message roles in a chat session.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// OrderStatusPlaced is the status of a newly created order.
const OrderStatusPlaced = "placed"

type User struct {
	ID         string
	Email      string
	SupabaseID string
	Role       string
	CreatedAt  time.Time
	LastLogin  time.Time
}

type ChatSession struct {
	ID           string
	UserID       string
	Name         string
	IsActive     bool
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastMessage  string
}

type ChatMessage struct {
	ID        string
	SessionID string
	UserID    string
	Role      string
	Message   string
	ImageKey  *string
	CreatedAt time.Time
}

type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Total     float64
	Status    string
	CreatedAt time.Time
}

type OrderItem struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int
	Image     string
}
