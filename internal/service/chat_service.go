package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// SessionStore persists dialogue sessions and their transcripts
type SessionStore interface {
	FindActiveSession(ctx context.Context, businessID int64, phone string, idleWindow time.Duration) (*models.ChatSession, error)
	CreateSession(ctx context.Context, session *models.ChatSession) error
	SaveSession(ctx context.Context, session *models.ChatSession) error
	AppendMessage(ctx context.Context, sessionID int64, role, content string) error
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error)
}

// CustomerReader looks up customer profiles for personalization
type CustomerReader interface {
	GetCustomer(ctx context.Context, businessID int64, phone string) (*models.Customer, error)
}

// SessionLocker serializes units of work per customer across instances
type SessionLocker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// OrderCreator is the orchestrator boundary the session hands a finalized
// cart to
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error)
}

// InboundMessage is one customer message arriving from a channel adapter
type InboundMessage struct {
	BusinessID    int64  `json:"business_id" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
	Text          string `json:"text" binding:"required"`
}

// SessionSnapshot is the session view returned with every reply
type SessionSnapshot struct {
	Status               string           `json:"status"`
	DialogueState        string           `json:"dialogue_state"`
	Cart                 models.CartItems `json:"cart"`
	AwaitingConfirmation bool             `json:"awaiting_confirmation"`
}

// ChatReply is the response to an inbound message
type ChatReply struct {
	BotMessage string          `json:"bot_message"`
	Session    SessionSnapshot `json:"session"`
}

const apologyReply = "Sorry, kuch problem ho gayi. Please try again. 🙏"

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// keyedMutex serializes work per key within this process
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// ChatService owns per-customer dialogue state and routes each inbound
// message to the right handler. The customer always gets a reply, even when
// something breaks internally.
type ChatService struct {
	sessions    SessionStore
	customers   CustomerReader
	cartBuilder *CartBuilder
	catalog     CatalogProvider
	parser      OrderParser
	intents     IntentInterpreter
	orders      OrderCreator
	locks       SessionLocker
	keyed       *keyedMutex
	idleWindow  time.Duration
	lockTTL     time.Duration
	storeName   string
	logger      *zap.Logger
}

// NewChatService creates the conversational front of the system
func NewChatService(
	sessions SessionStore,
	customers CustomerReader,
	cartBuilder *CartBuilder,
	catalog CatalogProvider,
	parser OrderParser,
	intents IntentInterpreter,
	orders OrderCreator,
	locks SessionLocker,
	idleWindow time.Duration,
	lockTTL time.Duration,
	storeName string,
) *ChatService {
	return &ChatService{
		sessions:    sessions,
		customers:   customers,
		cartBuilder: cartBuilder,
		catalog:     catalog,
		parser:      parser,
		intents:     intents,
		orders:      orders,
		locks:       locks,
		keyed:       newKeyedMutex(),
		idleWindow:  idleWindow,
		lockTTL:     lockTTL,
		storeName:   storeName,
		logger:      util.GetLogger(),
	}
}

// HandleMessage processes one inbound customer message and produces the bot
// reply. Both sides of the exchange are appended to the transcript, the
// customer message before routing and the reply after, whatever happens in
// between.
func (s *ChatService) HandleMessage(ctx context.Context, msg *InboundMessage) (*ChatReply, error) {
	ctx, span := util.StartSpan(ctx, "ChatService.HandleMessage")
	defer span.End()

	start := time.Now()
	defer func() {
		util.MessageHandlingLatency.Observe(time.Since(start).Seconds())
	}()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, &models.ValidationError{Field: "text", Reason: "message must not be empty"}
	}
	if msg.BusinessID <= 0 {
		return nil, &models.ValidationError{Field: "business_id", Reason: "missing business"}
	}
	if !phonePattern.MatchString(msg.CustomerPhone) {
		return nil, &models.ValidationError{Field: "customer_phone", Reason: "not an E.164-like number"}
	}

	// Serialize find-or-create per (business, phone): an in-process keyed
	// mutex plus a redis lock when running more than one instance.
	key := fmt.Sprintf("session:%d:%s", msg.BusinessID, msg.CustomerPhone)
	unlock := s.keyed.lock(key)
	defer unlock()
	if s.locks != nil {
		if acquired := s.acquireSessionLock(ctx, key); acquired {
			defer func() {
				if err := s.locks.ReleaseLock(ctx, key); err != nil {
					s.logger.Warn("Failed to release session lock", zap.String("key", key), zap.Error(err))
				}
			}()
		}
	}

	session, err := s.sessions.FindActiveSession(ctx, msg.BusinessID, msg.CustomerPhone, s.idleWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		session = &models.ChatSession{
			BusinessID:    msg.BusinessID,
			CustomerPhone: msg.CustomerPhone,
			Status:        models.SessionStatusActive,
			DialogueState: models.StateCollectingOrder,
			Cart:          models.CartItems{},
		}
		if err := s.sessions.CreateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		s.logger.Info("New chat session",
			zap.Int64("business_id", msg.BusinessID),
			zap.String("customer_phone", msg.CustomerPhone))
	}

	if err := s.sessions.AppendMessage(ctx, session.ID, models.RoleUser, text); err != nil {
		s.logger.Error("Failed to append customer message", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	customer, err := s.customers.GetCustomer(ctx, msg.BusinessID, msg.CustomerPhone)
	if err != nil {
		s.logger.Warn("Customer lookup failed", zap.String("customer_phone", msg.CustomerPhone), zap.Error(err))
		customer = nil
	}

	route, reply, err := s.route(ctx, session, customer, text)
	if err != nil {
		// The customer gets an apology, never a raw error, and the session
		// keeps its prior state so they can retry.
		s.logger.Error("Message routing failed",
			zap.Int64("session_id", session.ID),
			zap.String("route", route),
			zap.Error(err))
		route, reply = "error", apologyReply
	}
	util.MessagesProcessedTotal.WithLabelValues(route).Inc()

	if err := s.sessions.AppendMessage(ctx, session.ID, models.RoleAssistant, reply); err != nil {
		s.logger.Error("Failed to append bot reply", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	return &ChatReply{
		BotMessage: reply,
		Session: SessionSnapshot{
			Status:               session.Status,
			DialogueState:        session.DialogueState,
			Cart:                 session.Cart,
			AwaitingConfirmation: session.AwaitingConfirmation(),
		},
	}, nil
}

func (s *ChatService) acquireSessionLock(ctx context.Context, key string) bool {
	deadline := time.Now().Add(s.lockTTL)
	for {
		acquired, err := s.locks.AcquireLock(ctx, key, s.lockTTL)
		if err != nil {
			s.logger.Warn("Session lock unavailable, relying on local mutex",
				zap.String("key", key), zap.Error(err))
			return false
		}
		if acquired {
			return true
		}
		if time.Now().After(deadline) {
			s.logger.Warn("Session lock contention timeout", zap.String("key", key))
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// route picks a handler for the message. Greeting detection wins over every
// dialogue state.
func (s *ChatService) route(ctx context.Context, session *models.ChatSession, customer *models.Customer, text string) (string, string, error) {
	if IsGreeting(text) {
		return "greeting", s.greet(customer), nil
	}

	switch session.DialogueState {
	case models.StateCollectingName, models.StateCollectingAddress, models.StateCollectingPayment:
		reply, err := s.handleDetails(ctx, session, customer, text)
		return "details", reply, err

	case models.StateAwaitingConfirmation:
		intent, err := s.intents.InterpretIntent(ctx, text, session.Cart)
		if err != nil {
			// interpreter failure never cancels anyone: treat as MODIFY
			util.IntentFallbacksTotal.Inc()
			s.logger.Warn("Intent interpretation failed, defaulting to MODIFY",
				zap.Int64("session_id", session.ID), zap.Error(err))
			intent = Intent{Action: IntentModify, Confidence: 0.5}
		}
		switch intent.Action {
		case IntentConfirm:
			reply, err := s.handleConfirm(ctx, session, customer)
			return "confirm", reply, err
		case IntentCancel:
			reply, err := s.handleCancel(ctx, session)
			return "cancel", reply, err
		default:
			reply, err := s.handleOrderInput(ctx, session, text, true)
			return "modify", reply, err
		}

	default:
		reply, err := s.handleOrderInput(ctx, session, text, false)
		return "order_input", reply, err
	}
}

func (s *ChatService) greet(customer *models.Customer) string {
	if customer != nil && customer.Name != "" && customer.Name != "Unknown" {
		first := strings.Fields(customer.Name)[0]
		return fmt.Sprintf("Namaste %s ji! 🙏 %s mein aapka swagat hai. Aaj kya mangwana hai?", first, s.storeName)
	}
	return fmt.Sprintf("Namaste! 🙏 %s mein aapka swagat hai. Aaj kya mangwana hai?", s.storeName)
}

// handleOrderInput resolves the message into cart items; merge keeps the
// existing cart (the modify path).
func (s *ChatService) handleOrderInput(ctx context.Context, session *models.ChatSession, text string, merge bool) (string, error) {
	catalog, err := s.catalog.Get(ctx, session.BusinessID)
	if err != nil {
		return "", &models.CollaboratorError{Collaborator: "catalog", Err: err}
	}

	history, err := s.sessions.RecentMessages(ctx, session.ID, 6)
	if err != nil {
		s.logger.Warn("Failed to load transcript context", zap.Int64("session_id", session.ID), zap.Error(err))
		history = nil
	}

	mentions, err := s.parser.ParseOrder(ctx, text, history, catalog)
	if err != nil {
		return "", &models.CollaboratorError{Collaborator: "order parser", Err: err}
	}

	var existing models.CartItems
	if merge {
		existing = session.Cart
	}
	res, err := s.cartBuilder.Resolve(ctx, session.BusinessID, mentions, existing)
	if err != nil {
		return "", err
	}

	if res.NeedsClarification {
		return "Maaf kijiye, yeh item humari dukaan mein nahi mila. Kya aur kuch chahiye? 😔", nil
	}
	if !res.Updated {
		return fmt.Sprintf("%s abhi available nahi hai 😔. Kuch aur order karenge?",
			strings.Join(res.Unavailable, ", ")), nil
	}

	session.Cart = res.Cart
	session.DialogueState = models.StateAwaitingConfirmation
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	if len(res.Unavailable) > 0 {
		return fmt.Sprintf("%s abhi available nahi hai 😔.\n\nBaaki items ka bill:\n%s\n\nConfirm? (Haan/Na)",
			strings.Join(res.Unavailable, ", "), res.Bill), nil
	}
	return fmt.Sprintf("📝 Aapka Order:\n%s\n\nConfirm? (Haan/Na)", res.Bill), nil
}

// handleConfirm starts detail collection; a confirm against an empty cart
// just resets the confirmation flag.
func (s *ChatService) handleConfirm(ctx context.Context, session *models.ChatSession, customer *models.Customer) (string, error) {
	if len(session.Cart) == 0 {
		session.DialogueState = models.StateCollectingOrder
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
		return "Koi item nahi hai abhi. Kya mangwana hai?", nil
	}

	session.DialogueState = models.StateCollectingName
	if customer != nil && customer.Name != "" && customer.Name != "Unknown" {
		session.CustomerName = customer.Name
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	if session.CustomerName != "" {
		return fmt.Sprintf("Perfect! Aapka naam %s hai na? (Haan ya naya naam type karein)", session.CustomerName), nil
	}
	return "Perfect! Kripya apna naam bataiye? 📝", nil
}

func (s *ChatService) handleCancel(ctx context.Context, session *models.ChatSession) (string, error) {
	session.Cart = nil
	session.DialogueState = models.StateCollectingOrder
	session.Status = models.SessionStatusAbandoned
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return "Order cancel kar diya. Koi baat nahi! Phir aana. 🙏", nil
}

// handleDetails walks name → address → payment, one field per message
func (s *ChatService) handleDetails(ctx context.Context, session *models.ChatSession, customer *models.Customer, text string) (string, error) {
	switch session.DialogueState {
	case models.StateCollectingName:
		if !(session.CustomerName != "" && IsAffirmative(text)) {
			session.CustomerName = strings.TrimSpace(text)
		}
		session.DialogueState = models.StateCollectingAddress
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
		return fmt.Sprintf("Dhanyavaad %s ji! 🙏\n\nAb delivery address bataiye? 📍\n(Example: \"Shop 5, Main Market, Karol Bagh, Delhi\")",
			session.CustomerName), nil

	case models.StateCollectingAddress:
		session.DeliveryAddress = strings.TrimSpace(text)
		session.DialogueState = models.StateCollectingPayment
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return "", fmt.Errorf("failed to save session: %w", err)
		}
		return "Address save ho gaya! 📍\n\nPayment method select karein:\n\n1️⃣ COD (Cash on Delivery)\n2️⃣ Credit (Udhar)\n\n\"1\" ya \"2\" type karein ya \"COD\" / \"Credit\" likhein", nil

	case models.StateCollectingPayment:
		lower := strings.ToLower(strings.TrimSpace(text))
		payment := models.PaymentMethodCOD
		if strings.Contains(lower, "2") || strings.Contains(lower, "credit") || strings.Contains(lower, "udhar") {
			payment = models.PaymentMethodCredit
		}
		return s.createFinalOrder(ctx, session, customer, payment)
	}

	return "Maaf kijiye, samajh nahi aaya. Kripya phir se try karein.", nil
}

// createFinalOrder hands the frozen cart to the orchestrator. The session
// is only cleared and completed once the order exists; on failure it stays
// at the payment step so the customer can retry.
func (s *ChatService) createFinalOrder(ctx context.Context, session *models.ChatSession, customer *models.Customer, payment string) (string, error) {
	name := session.CustomerName
	if name == "" && customer != nil {
		name = customer.Name
	}
	if name == "" {
		name = "Unknown"
	}

	items := make([]models.OrderItem, 0, len(session.Cart))
	for _, item := range session.Cart {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}
	subtotal := session.Cart.Subtotal()

	order, err := s.orders.CreateOrder(ctx, &CreateOrderRequest{
		BusinessID:      session.BusinessID,
		CustomerPhone:   session.CustomerPhone,
		CustomerName:    name,
		DeliveryAddress: session.DeliveryAddress,
		Items:           items,
		Subtotal:        subtotal,
		GrandTotal:      subtotal,
		PaymentMethod:   payment,
		Source:          "chatbot",
	})
	if err != nil {
		s.logger.Error("Order creation failed", zap.Int64("session_id", session.ID), zap.Error(err))
		return "Order create karne mein problem ho gayi. Please try again.", nil
	}

	now := time.Now()
	session.Cart = nil
	session.PaymentMethod = payment
	session.PendingOrder = order.OrderNumber
	session.DialogueState = models.StateCollectingOrder
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.logger.Error("Failed to complete session", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	paymentText := "💵 Payment: COD"
	if order.PaymentMethod == models.PaymentMethodCredit {
		paymentText = "💳 Payment: Udhar (Credit)"
	}
	return fmt.Sprintf("✅ Order %s confirmed!\n\n👤 %s\n📍 %s\n💰 Total: %s\n%s\n🚚 Delivery: ~30 min\n\nDhanyavaad! 🙏",
		order.OrderNumber, order.CustomerName, order.DeliveryAddress, models.FormatPaise(order.GrandTotal), paymentText), nil
}
