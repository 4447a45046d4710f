package store

import (
	"context"
	"database/sql"
	"time"

	"chat-commerce/internal/models"
)

// FindActiveSession returns the active session for a customer whose last
// message falls inside the idle window, or nil when none exists.
func (s *Store) FindActiveSession(ctx context.Context, businessID int64, phone string, idleWindow time.Duration) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.GetContext(ctx, &session,
		`SELECT * FROM chat_sessions
		 WHERE business_id = $1 AND customer_phone = $2 AND status = $3
		   AND last_message_at >= $4
		 ORDER BY last_message_at DESC LIMIT 1`,
		businessID, phone, models.SessionStatusActive, time.Now().Add(-idleWindow))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession persists a new session
func (s *Store) CreateSession(ctx context.Context, session *models.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (
			business_id, customer_phone, status, dialogue_state, cart,
			customer_name, delivery_address, payment_method, pending_order,
			last_message_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, last_message_at, created_at, updated_at`

	return s.db.GetContext(ctx, session, query,
		session.BusinessID, session.CustomerPhone, session.Status, session.DialogueState,
		session.Cart, session.CustomerName, session.DeliveryAddress, session.PaymentMethod,
		session.PendingOrder)
}

// SaveSession persists the mutable session state
func (s *Store) SaveSession(ctx context.Context, session *models.ChatSession) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions
		 SET status = $1, dialogue_state = $2, cart = $3, customer_name = $4,
		     delivery_address = $5, payment_method = $6, pending_order = $7,
		     completed_at = $8, updated_at = NOW()
		 WHERE id = $9`,
		session.Status, session.DialogueState, session.Cart, session.CustomerName,
		session.DeliveryAddress, session.PaymentMethod, session.PendingOrder,
		session.CompletedAt, session.ID)
	return err
}

// AppendMessage adds a transcript entry and touches the session's
// last-message timestamp
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)",
		sessionID, role, content)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE chat_sessions SET last_message_at = NOW(), updated_at = NOW() WHERE id = $1",
		sessionID)
	return err
}

// RecentMessages returns the most recent transcript entries in
// chronological order
func (s *Store) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.SelectContext(ctx, &messages,
		`SELECT * FROM (
			SELECT * FROM chat_messages WHERE session_id = $1 ORDER BY id DESC LIMIT $2
		 ) recent ORDER BY id`,
		sessionID, limit)
	return messages, err
}
