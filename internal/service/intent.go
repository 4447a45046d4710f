package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"chat-commerce/internal/models"
)

// Intent actions
const (
	IntentConfirm = "CONFIRM"
	IntentCancel  = "CANCEL"
	IntentModify  = "MODIFY"
)

// Intent is the interpreted meaning of a confirmation-stage reply
type Intent struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// IntentInterpreter classifies a reply given the current cart as context.
// Implementations may call a model; the state machine treats any failure as
// a MODIFY attempt so a customer is never accidentally cancelled.
type IntentInterpreter interface {
	InterpretIntent(ctx context.Context, text string, cart models.CartItems) (Intent, error)
}

// ItemMention is a structured item candidate extracted from free text
type ItemMention struct {
	Alias    string `json:"alias"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// OrderParser extracts item mentions from a customer message. The recent
// transcript is passed for implementations that need dialogue context.
type OrderParser interface {
	ParseOrder(ctx context.Context, text string, history []models.ChatMessage, catalog *models.Catalog) ([]ItemMention, error)
}

// Greeting and reply patterns, Hindi/English/Hinglish
var (
	greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|namaste|namaskar|namasthe|hola|vannakkam|namaskara|kaise ho|haan ji|bhaiya|didi|are|arre|oye)\b`)
	confirmPattern  = regexp.MustCompile(`(?i)^(haan|haa|ha|yes|yep|yeah|ok|okay|confirm|done|theek|thik|sahi|bolo|haanji|hogaya|place order|order karo|kardo)\b`)
	cancelPattern   = regexp.MustCompile(`(?i)^(nahi|naa|no|cancel|ruko|band karo|mat|chhodo|hatao|nako)\b`)
)

// IsGreeting reports whether the message opens with a greeting. Greeting
// routing takes priority over every other state.
func IsGreeting(text string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(text))
}

// IsAffirmative reports whether the message is a positive affirmation
func IsAffirmative(text string) bool {
	return confirmPattern.MatchString(strings.TrimSpace(text))
}

// PatternInterpreter is the deterministic IntentInterpreter. Affirmations
// are treated generously as CONFIRM, explicit refusals as CANCEL, and
// everything else as an attempted modification.
type PatternInterpreter struct{}

func NewPatternInterpreter() *PatternInterpreter {
	return &PatternInterpreter{}
}

func (p *PatternInterpreter) InterpretIntent(_ context.Context, text string, _ models.CartItems) (Intent, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case confirmPattern.MatchString(trimmed):
		return Intent{Action: IntentConfirm, Confidence: 0.9}, nil
	case cancelPattern.MatchString(trimmed):
		return Intent{Action: IntentCancel, Confidence: 0.9}, nil
	default:
		return Intent{Action: IntentModify, Confidence: 0.5}, nil
	}
}

var unitAliases = map[string]string{
	"kg": "kg", "kilo": "kg", "kilogram": "kg",
	"g": "g", "gm": "g", "gram": "g",
	"l": "l", "ltr": "l", "litre": "l", "liter": "l",
	"packet": "packet", "pkt": "packet",
	"pc": "pc", "pcs": "pc", "piece": "pc",
	"dozen": "dozen",
}

const unitPattern = `kilogram|kilo|kg|gram|gm|g|litre|liter|ltr|l|packet|pkt|pieces|piece|pcs|pc|dozen`

// PatternOrderParser is the deterministic OrderParser: it scans the message
// for catalog aliases with an optional leading quantity and unit. Longer
// aliases are matched first and consumed so "basmati chawal" does not also
// count as "chawal".
type PatternOrderParser struct{}

func NewPatternOrderParser() *PatternOrderParser {
	return &PatternOrderParser{}
}

func (p *PatternOrderParser) ParseOrder(_ context.Context, text string, _ []models.ChatMessage, catalog *models.Catalog) ([]ItemMention, error) {
	if catalog == nil {
		return nil, nil
	}

	aliases := make([]string, 0, len(catalog.Aliases))
	for alias := range catalog.Aliases {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	remaining := strings.ToLower(text)
	var mentions []ItemMention

	for _, alias := range aliases {
		re, err := regexp.Compile(
			`(?:(\d+)\s*(` + unitPattern + `)?\s+)?` + regexp.QuoteMeta(alias) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile alias pattern %q: %w", alias, err)
		}

		for {
			loc := re.FindStringSubmatchIndex(remaining)
			if loc == nil {
				break
			}
			match := re.FindStringSubmatch(remaining)

			quantity := 1
			if match[1] != "" {
				if q, err := strconv.Atoi(match[1]); err == nil && q > 0 {
					quantity = q
				}
			}
			unit := ""
			if match[2] != "" {
				unit = unitAliases[match[2]]
			}

			mentions = append(mentions, ItemMention{
				Alias:    alias,
				Quantity: quantity,
				Unit:     unit,
			})

			// consume the matched span so shorter aliases cannot re-match it
			remaining = remaining[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + remaining[loc[1]:]
		}
	}

	return mentions, nil
}
