package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chat-commerce/internal/models"
)

// fakeProductStore is an in-memory product table. It backs the catalog
// cache, the availability checker, and the orchestrator's inventory side.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	listErr  error
	byIDsErr error
}

func newFakeProductStore(products ...*models.Product) *fakeProductStore {
	s := &fakeProductStore{products: make(map[int64]*models.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) GetSellableProducts(_ context.Context, businessID int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Product
	for _, p := range s.products {
		if p.BusinessID == businessID && p.Available {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeProductStore) GetProductsByIDs(_ context.Context, businessID int64, ids []int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byIDsErr != nil {
		return nil, s.byIDsErr
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.BusinessID == businessID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeProductStore) GetProductByID(_ context.Context, businessID, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.BusinessID != businessID {
		return nil, &models.NotFoundError{Resource: "product", Key: fmt.Sprintf("%d", id)}
	}
	copied := *p
	return &copied, nil
}

func (s *fakeProductStore) DeductStock(_ context.Context, businessID, productID int64, quantity int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.BusinessID != businessID {
		return false, nil
	}
	if p.CurrentStock < quantity {
		return false, nil
	}
	p.CurrentStock -= quantity
	return true, nil
}

func (s *fakeProductStore) SetStock(_ context.Context, businessID, productID int64, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.BusinessID != businessID {
		return &models.NotFoundError{Resource: "product", Key: fmt.Sprintf("%d", productID)}
	}
	p.CurrentStock = stock
	return nil
}

func (s *fakeProductStore) stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].CurrentStock
}

// fakeCache is a map-backed CacheBackend
type fakeCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

// fakeOrderStore is an in-memory OrderStore with a per-year counter
type fakeOrderStore struct {
	mu      sync.Mutex
	seq     map[int]int
	orders  map[string]*models.Order
	nextID  int64
	saveErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		seq:    make(map[int]int),
		orders: make(map[string]*models.Order),
	}
}

func (s *fakeOrderStore) NextOrderSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[year]++
	return s.seq[year], nil
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	order.ID = s.nextID
	order.CreatedAt = time.Now()
	copied := *order
	s.orders[order.OrderNumber] = &copied
	return nil
}

func (s *fakeOrderStore) GetOrderByNumber(_ context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderNumber]
	if !ok || order.BusinessID != businessID {
		return nil, &models.NotFoundError{Resource: "order", Key: orderNumber}
	}
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) SaveOrderState(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	copied := *order
	s.orders[order.OrderNumber] = &copied
	return nil
}

func (s *fakeOrderStore) ListOrders(_ context.Context, businessID int64, status string, limit, offset int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, order := range s.orders {
		if order.BusinessID != businessID {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		out = append(out, *order)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeOrderStore) CountOrders(_ context.Context, businessID int64, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, order := range s.orders {
		if order.BusinessID != businessID {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		count++
	}
	return count, nil
}

// fakeSessionStore keeps sessions and transcripts in memory. It also serves
// as the CustomerReader.
type fakeSessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.ChatSession
	messages  map[int64][]models.ChatMessage
	customers map[string]*models.Customer
	nextID    int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[string]*models.ChatSession),
		messages:  make(map[int64][]models.ChatMessage),
		customers: make(map[string]*models.Customer),
	}
}

func sessionKey(businessID int64, phone string) string {
	return fmt.Sprintf("%d:%s", businessID, phone)
}

func (s *fakeSessionStore) FindActiveSession(_ context.Context, businessID int64, phone string, idleWindow time.Duration) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(businessID, phone)]
	if !ok || session.Status != models.SessionStatusActive {
		return nil, nil
	}
	if time.Since(session.LastMessageAt) > idleWindow {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) CreateSession(_ context.Context, session *models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	session.ID = s.nextID
	session.LastMessageAt = time.Now()
	copied := *session
	s.sessions[sessionKey(session.BusinessID, session.CustomerPhone)] = &copied
	return nil
}

func (s *fakeSessionStore) SaveSession(_ context.Context, session *models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[sessionKey(session.BusinessID, session.CustomerPhone)] = &copied
	return nil
}

func (s *fakeSessionStore) AppendMessage(_ context.Context, sessionID int64, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	for _, session := range s.sessions {
		if session.ID == sessionID {
			session.LastMessageAt = time.Now()
		}
	}
	return nil
}

func (s *fakeSessionStore) RecentMessages(_ context.Context, sessionID int64, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.ChatMessage{}, msgs...), nil
}

func (s *fakeSessionStore) GetCustomer(_ context.Context, businessID int64, phone string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[sessionKey(businessID, phone)]
	if !ok {
		return nil, nil
	}
	copied := *customer
	return &copied, nil
}

func (s *fakeSessionStore) session(businessID int64, phone string) *models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionKey(businessID, phone)]
}

// fakeRecorder captures customer-stat and ledger calls
type fakeRecorder struct {
	mu        sync.Mutex
	orders    []string
	sales     []string
	customErr error
	ledgerErr error
}

func (r *fakeRecorder) RecordCustomerOrder(_ context.Context, _ int64, phone, _ string, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.customErr != nil {
		return r.customErr
	}
	r.orders = append(r.orders, phone)
	return nil
}

func (r *fakeRecorder) RecordSale(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ledgerErr != nil {
		return r.ledgerErr
	}
	r.sales = append(r.sales, order.OrderNumber)
	return nil
}

// fakeEventSink captures published events
type fakeEventSink struct {
	mu            sync.Mutex
	newOrders     []*models.NewOrderEvent
	statusChanges []*models.OrderStatusChangedEvent
	stockAlerts   []*models.StockAlertEvent
}

func (e *fakeEventSink) PublishNewOrder(_ context.Context, event *models.NewOrderEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.newOrders = append(e.newOrders, event)
	return nil
}

func (e *fakeEventSink) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusChanges = append(e.statusChanges, event)
	return nil
}

func (e *fakeEventSink) PublishStockAlert(_ context.Context, event *models.StockAlertEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stockAlerts = append(e.stockAlerts, event)
	return nil
}
