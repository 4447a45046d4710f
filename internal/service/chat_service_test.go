package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-commerce/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBusinessID = int64(7)
	testPhone      = "+919876543210"
)

type chatFixture struct {
	chat        *ChatService
	sessions    *fakeSessionStore
	products    *fakeProductStore
	orders      *fakeOrderStore
	events      *fakeEventSink
	fulfillment *FulfillmentService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	products := newFakeProductStore(
		&models.Product{
			ID: 1, BusinessID: testBusinessID, Name: "Basmati Rice",
			Aliases: pq.StringArray{"chawal"}, Unit: "kg",
			Price: 8000, GSTRate: 5, CurrentStock: 50, ReorderLevel: 10, Available: true,
		},
		&models.Product{
			ID: 2, BusinessID: testBusinessID, Name: "Toor Dal",
			Aliases: pq.StringArray{"daal"}, Unit: "kg",
			Price: 12000, GSTRate: 5, CurrentStock: 3, ReorderLevel: 5, Available: true,
		},
	)
	catalog := NewCatalogCache(products, newFakeCache(), 5*time.Minute)
	cartBuilder := NewCartBuilder(catalog, NewAvailabilityChecker(products))

	orders := newFakeOrderStore()
	recorder := &fakeRecorder{}
	events := &fakeEventSink{}
	fulfillment := NewFulfillmentService(orders, products, recorder, recorder, catalog, events, "KRN")

	sessions := newFakeSessionStore()
	chat := NewChatService(
		sessions, sessions, cartBuilder, catalog,
		NewPatternOrderParser(), NewPatternInterpreter(),
		fulfillment, nil,
		30*time.Minute, time.Second, "Sharma General Store",
	)

	return &chatFixture{
		chat:        chat,
		sessions:    sessions,
		products:    products,
		orders:      orders,
		events:      events,
		fulfillment: fulfillment,
	}
}

func (f *chatFixture) send(t *testing.T, text string) *ChatReply {
	t.Helper()
	reply, err := f.chat.HandleMessage(context.Background(), &InboundMessage{
		BusinessID:    testBusinessID,
		CustomerPhone: testPhone,
		Text:          text,
	})
	require.NoError(t, err)
	return reply
}

func TestChatFullOrderFlow(t *testing.T) {
	f := newChatFixture(t)

	reply := f.send(t, "namaste")
	assert.Contains(t, reply.BotMessage, "Sharma General Store")
	assert.Equal(t, models.StateCollectingOrder, reply.Session.DialogueState)

	reply = f.send(t, "2 kilo chawal bhejo")
	assert.Contains(t, reply.BotMessage, "📝 Aapka Order:")
	assert.Contains(t, reply.BotMessage, "Basmati Rice 2kg")
	assert.Contains(t, reply.BotMessage, "₹160.00")
	assert.True(t, reply.Session.AwaitingConfirmation)
	require.Len(t, reply.Session.Cart, 1)

	reply = f.send(t, "haan")
	assert.Contains(t, reply.BotMessage, "naam")
	assert.Equal(t, models.StateCollectingName, reply.Session.DialogueState)

	reply = f.send(t, "Ramesh Kumar")
	assert.Contains(t, reply.BotMessage, "Ramesh Kumar")
	assert.Contains(t, reply.BotMessage, "address")
	assert.Equal(t, models.StateCollectingAddress, reply.Session.DialogueState)

	reply = f.send(t, "Shop 5, Main Market, Karol Bagh, Delhi")
	assert.Contains(t, reply.BotMessage, "Payment")
	assert.Equal(t, models.StateCollectingPayment, reply.Session.DialogueState)

	reply = f.send(t, "1")
	assert.Contains(t, reply.BotMessage, "✅ Order KRN-")
	assert.Contains(t, reply.BotMessage, "COD")
	assert.Equal(t, models.SessionStatusCompleted, reply.Session.Status)
	assert.Empty(t, reply.Session.Cart)

	session := f.sessions.session(testBusinessID, testPhone)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.PendingOrder)

	order, err := f.orders.GetOrderByNumber(context.Background(), testBusinessID, session.PendingOrder)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "Ramesh Kumar", order.CustomerName)
	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, int64(16000), order.GrandTotal)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// stock is not touched until the owner accepts
	assert.Equal(t, 50, f.products.stock(1))
}

func TestChatCreditPayment(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "1 chawal")
	f.send(t, "haan")
	f.send(t, "Ramesh")
	f.send(t, "Main Market")
	reply := f.send(t, "udhar chalega")

	assert.Contains(t, reply.BotMessage, "Udhar")
	session := f.sessions.session(testBusinessID, testPhone)
	order, err := f.orders.GetOrderByNumber(context.Background(), testBusinessID, session.PendingOrder)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodCredit, order.PaymentMethod)
}

func TestChatGreetingWinsOverConfirmation(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "2 chawal")
	reply := f.send(t, "hello bhaiya")

	assert.Contains(t, reply.BotMessage, "Namaste")
	// the pending confirmation survives the greeting
	assert.True(t, reply.Session.AwaitingConfirmation)
	require.Len(t, reply.Session.Cart, 1)
}

func TestChatUnknownItem(t *testing.T) {
	f := newChatFixture(t)

	reply := f.send(t, "shampoo chahiye")
	assert.Contains(t, reply.BotMessage, "nahi mila")
	assert.Equal(t, models.StateCollectingOrder, reply.Session.DialogueState)
	assert.Empty(t, reply.Session.Cart)
}

func TestChatUnavailableItem(t *testing.T) {
	f := newChatFixture(t)

	reply := f.send(t, "5 daal") // stock is 3
	assert.Contains(t, reply.BotMessage, "Toor Dal abhi available nahi hai")
	assert.False(t, reply.Session.AwaitingConfirmation)
	assert.Empty(t, reply.Session.Cart)
}

func TestChatPartialAvailability(t *testing.T) {
	f := newChatFixture(t)

	reply := f.send(t, "2 chawal aur 5 daal")
	assert.Contains(t, reply.BotMessage, "Toor Dal abhi available nahi hai")
	assert.Contains(t, reply.BotMessage, "Baaki items ka bill")
	assert.True(t, reply.Session.AwaitingConfirmation)
	require.Len(t, reply.Session.Cart, 1)
	assert.Equal(t, int64(1), reply.Session.Cart[0].ProductID)
}

func TestChatModifyDuringConfirmation(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "2 chawal")
	reply := f.send(t, "aur ek cheez, 1 daal bhi")

	assert.True(t, reply.Session.AwaitingConfirmation)
	require.Len(t, reply.Session.Cart, 2)
	assert.Equal(t, 2, reply.Session.Cart[0].Quantity)
	assert.Equal(t, 1, reply.Session.Cart[1].Quantity)
}

func TestChatCancel(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "2 chawal")
	reply := f.send(t, "nahi, cancel karo")

	assert.Contains(t, reply.BotMessage, "cancel")
	assert.Equal(t, models.SessionStatusAbandoned, reply.Session.Status)
	assert.Empty(t, reply.Session.Cart)
	assert.False(t, reply.Session.AwaitingConfirmation)
}

func TestChatConfirmEmptyCart(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "2 chawal")
	session := f.sessions.session(testBusinessID, testPhone)
	session.Cart = nil
	require.NoError(t, f.sessions.SaveSession(context.Background(), session))

	reply := f.send(t, "haan")
	assert.Contains(t, reply.BotMessage, "Koi item nahi")
	assert.Equal(t, models.StateCollectingOrder, reply.Session.DialogueState)
}

func TestChatNamePrefill(t *testing.T) {
	f := newChatFixture(t)
	f.sessions.customers[sessionKey(testBusinessID, testPhone)] = &models.Customer{
		BusinessID: testBusinessID, Phone: testPhone, Name: "Ramesh Kumar",
	}

	reply := f.send(t, "namaste")
	assert.Contains(t, reply.BotMessage, "Namaste Ramesh ji")

	f.send(t, "1 chawal")
	reply = f.send(t, "haan")
	assert.Contains(t, reply.BotMessage, "Aapka naam Ramesh Kumar hai na?")

	// an affirmative keeps the known name
	reply = f.send(t, "haan")
	assert.Contains(t, reply.BotMessage, "Dhanyavaad Ramesh Kumar ji")
	assert.Equal(t, models.StateCollectingAddress, reply.Session.DialogueState)
}

func TestChatValidation(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.HandleMessage(context.Background(), &InboundMessage{
		BusinessID: testBusinessID, CustomerPhone: testPhone, Text: "   ",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = f.chat.HandleMessage(context.Background(), &InboundMessage{
		BusinessID: testBusinessID, CustomerPhone: "not-a-number", Text: "hi",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = f.chat.HandleMessage(context.Background(), &InboundMessage{
		CustomerPhone: testPhone, Text: "hi",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

type failingOrderCreator struct{}

func (failingOrderCreator) CreateOrder(context.Context, *CreateOrderRequest) (*models.Order, error) {
	return nil, errors.New("orders table unavailable")
}

func TestChatOrderCreationFailureKeepsPaymentStep(t *testing.T) {
	f := newChatFixture(t)
	f.chat.orders = failingOrderCreator{}

	f.send(t, "2 chawal")
	f.send(t, "haan")
	f.send(t, "Ramesh")
	f.send(t, "Main Market")
	reply := f.send(t, "1")

	assert.Contains(t, reply.BotMessage, "problem ho gayi")
	// the session stays at the payment step so the customer can retry
	assert.Equal(t, models.StateCollectingPayment, reply.Session.DialogueState)
	require.Len(t, reply.Session.Cart, 1)

	f.chat.orders = f.fulfillment
	reply = f.send(t, "1")
	assert.Contains(t, reply.BotMessage, "✅ Order KRN-")
	assert.Equal(t, models.SessionStatusCompleted, reply.Session.Status)
}

func TestChatTranscriptRecorded(t *testing.T) {
	f := newChatFixture(t)

	f.send(t, "namaste")
	f.send(t, "2 chawal")

	session := f.sessions.session(testBusinessID, testPhone)
	msgs, err := f.sessions.RecentMessages(context.Background(), session.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "namaste", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, models.RoleUser, msgs[2].Role)
}
