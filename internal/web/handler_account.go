package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/breedchat/internal/domain"
)

type syncUserRequest struct {
	Email      string `json:"email"`
	SupabaseID string `json:"supabase_id"`
}

type orderItemJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

type createOrderRequest struct {
	UserID string          `json:"user_id"`
	Items  []orderItemJSON `json:"items"`
	Total  float64         `json:"total"`
}

type orderJSON struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     []orderItemJSON `json:"items"`
	Total     float64         `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func toOrderJSON(o *domain.Order) orderJSON {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON{
			ID:       it.ProductID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Image:    it.Image,
		})
	}
	return orderJSON{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
}

// handleSyncUser records a sign-in. Under auth the token subject must be the
// identity provider's id for the user.
func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.authorize(w, r, req.SupabaseID) {
		return
	}

	created, err := s.accounts.SyncUser(r.Context(), req.Email, req.SupabaseID)
	if err != nil {
		s.writeServiceError(w, "sync user", err)
		return
	}
	status := "exists"
	if created {
		status = "created"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.authorize(w, r, req.UserID) {
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}

	order, err := s.accounts.PlaceOrder(r.Context(), req.UserID, items, req.Total)
	if err != nil {
		s.writeServiceError(w, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderJSON(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userID")
	if !s.authorize(w, r, userID) {
		return
	}

	orders, err := s.accounts.ListOrders(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, "list orders", err)
		return
	}
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string][]orderJSON{"orders": out})
}
