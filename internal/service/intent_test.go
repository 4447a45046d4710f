package service

import (
	"context"
	"testing"

	"chat-commerce/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGreeting(t *testing.T) {
	greetings := []string{
		"hi",
		"Hello bhaiya",
		"namaste",
		"Namaskar ji",
		"  hey there",
		"bhaiya 2 kilo chawal",
	}
	for _, text := range greetings {
		assert.True(t, IsGreeting(text), "expected greeting: %q", text)
	}

	notGreetings := []string{
		"2 kilo chawal",
		"haan",
		"cancel",
		"chawal aur daal bhejo",
	}
	for _, text := range notGreetings {
		assert.False(t, IsGreeting(text), "not a greeting: %q", text)
	}
}

func TestPatternInterpreter(t *testing.T) {
	interp := NewPatternInterpreter()

	cases := []struct {
		text   string
		action string
	}{
		{"haan", IntentConfirm},
		{"Haan ji bilkul", IntentConfirm},
		{"yes", IntentConfirm},
		{"ok done", IntentConfirm},
		{"theek hai", IntentConfirm},
		{"nahi", IntentCancel},
		{"cancel karo", IntentCancel},
		{"No thanks", IntentCancel},
		{"aur 1 kilo daal bhi", IntentModify},
		{"2 packet biscuit add karo", IntentModify},
	}
	for _, tc := range cases {
		intent, err := interp.InterpretIntent(context.Background(), tc.text, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.action, intent.Action, "text: %q", tc.text)
	}
}

func parserCatalog() *models.Catalog {
	return &models.Catalog{
		Aliases: map[string]models.AliasTarget{
			"chawal":         {ProductID: 1, Name: "Basmati Rice"},
			"rice":           {ProductID: 1, Name: "Basmati Rice"},
			"basmati chawal": {ProductID: 1, Name: "Basmati Rice"},
			"daal":           {ProductID: 2, Name: "Toor Dal"},
			"atta":           {ProductID: 3, Name: "Wheat Flour"},
		},
	}
}

func TestParseOrderQuantityAndUnit(t *testing.T) {
	parser := NewPatternOrderParser()

	mentions, err := parser.ParseOrder(context.Background(), "2 kilo chawal aur 1 daal", nil, parserCatalog())
	require.NoError(t, err)
	require.Len(t, mentions, 2)

	byAlias := make(map[string]ItemMention)
	for _, m := range mentions {
		byAlias[m.Alias] = m
	}
	assert.Equal(t, 2, byAlias["chawal"].Quantity)
	assert.Equal(t, "kg", byAlias["chawal"].Unit)
	assert.Equal(t, 1, byAlias["daal"].Quantity)
}

func TestParseOrderDefaultsQuantityToOne(t *testing.T) {
	parser := NewPatternOrderParser()

	mentions, err := parser.ParseOrder(context.Background(), "atta bhejo", nil, parserCatalog())
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "atta", mentions[0].Alias)
	assert.Equal(t, 1, mentions[0].Quantity)
	assert.Empty(t, mentions[0].Unit)
}

func TestParseOrderLongestAliasWins(t *testing.T) {
	parser := NewPatternOrderParser()

	// "basmati chawal" must not also register a bare "chawal" mention
	mentions, err := parser.ParseOrder(context.Background(), "2 kg basmati chawal", nil, parserCatalog())
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "basmati chawal", mentions[0].Alias)
	assert.Equal(t, 2, mentions[0].Quantity)
}

func TestParseOrderRepeatedAlias(t *testing.T) {
	parser := NewPatternOrderParser()

	mentions, err := parser.ParseOrder(context.Background(), "2 chawal aur 3 chawal", nil, parserCatalog())
	require.NoError(t, err)
	require.Len(t, mentions, 2)
	assert.Equal(t, 2, mentions[0].Quantity)
	assert.Equal(t, 3, mentions[1].Quantity)
}

func TestParseOrderNoMatches(t *testing.T) {
	parser := NewPatternOrderParser()

	mentions, err := parser.ParseOrder(context.Background(), "shampoo chahiye", nil, parserCatalog())
	require.NoError(t, err)
	assert.Empty(t, mentions)
}
