package service

import (
	"context"
	"fmt"
	"strings"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// AvailabilitySource checks product+quantity pairs against current stock
type AvailabilitySource interface {
	Check(ctx context.Context, businessID int64, items []AvailabilityRequest) ([]AvailabilityResult, error)
}

// CartResolution is the outcome of resolving item mentions into a cart
type CartResolution struct {
	// NeedsClarification is set when no mention resolved to a catalog product
	NeedsClarification bool
	// Updated is set when the cart gained at least one item
	Updated bool
	// Cart is the resulting cart (the existing cart, unchanged, when nothing
	// could be added)
	Cart models.CartItems
	// Unavailable names items excluded for stock reasons
	Unavailable []string
	// Bill is the itemized bill for the resulting cart
	Bill string
}

// CartBuilder turns resolved item mentions into a priced cart
type CartBuilder struct {
	catalog      CatalogProvider
	availability AvailabilitySource
	logger       *zap.Logger
}

// NewCartBuilder creates a cart builder
func NewCartBuilder(catalog CatalogProvider, availability AvailabilitySource) *CartBuilder {
	return &CartBuilder{
		catalog:      catalog,
		availability: availability,
		logger:       util.GetLogger(),
	}
}

// Resolve maps mentions onto catalog products, drops what the catalog does
// not know, filters by availability, and merges into the existing cart.
// Same-product mentions sum their quantities; existing item order is
// preserved and new items append at the end.
func (b *CartBuilder) Resolve(ctx context.Context, businessID int64, mentions []ItemMention, existing models.CartItems) (*CartResolution, error) {
	catalog, err := b.catalog.Get(ctx, businessID)
	if err != nil {
		return nil, &models.CollaboratorError{Collaborator: "catalog", Err: err}
	}

	entries := make(map[int64]*models.CatalogEntry, len(catalog.Products))
	for i := range catalog.Products {
		entries[catalog.Products[i].ProductID] = &catalog.Products[i]
	}

	// Resolve aliases; unresolved mentions are dropped silently. Repeat
	// mentions of one product collapse into a single candidate.
	var candidates []models.CartItem
	position := make(map[int64]int)
	for _, mention := range mentions {
		target, ok := catalog.Aliases[strings.ToLower(mention.Alias)]
		if !ok {
			continue
		}
		entry, ok := entries[target.ProductID]
		if !ok {
			continue
		}

		if idx, seen := position[target.ProductID]; seen {
			candidates[idx].Quantity += mention.Quantity
			continue
		}

		unit := mention.Unit
		if unit == "" {
			unit = entry.Unit
		}
		position[target.ProductID] = len(candidates)
		candidates = append(candidates, models.CartItem{
			ProductID: entry.ProductID,
			Name:      entry.Name,
			Quantity:  mention.Quantity,
			Unit:      unit,
			UnitPrice: entry.Price,
		})
	}

	if len(candidates) == 0 {
		return &CartResolution{NeedsClarification: true, Cart: existing}, nil
	}

	checks := make([]AvailabilityRequest, 0, len(candidates))
	for _, item := range candidates {
		checks = append(checks, AvailabilityRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	results, err := b.availability.Check(ctx, businessID, checks)
	if err != nil {
		return nil, err
	}

	available := make(map[int64]bool, len(results))
	var unavailable []string
	for _, result := range results {
		available[result.ProductID] = result.Available
		if !result.Available {
			name := result.Name
			if name == "" {
				if entry, ok := entries[result.ProductID]; ok {
					name = entry.Name
				}
			}
			unavailable = append(unavailable, name)
		}
	}

	cart := append(models.CartItems{}, existing...)
	updated := false
	for _, item := range candidates {
		if !available[item.ProductID] {
			continue
		}
		merged := false
		for i := range cart {
			if cart[i].ProductID == item.ProductID {
				cart[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			cart = append(cart, item)
		}
		updated = true
	}

	if !updated {
		return &CartResolution{Cart: existing, Unavailable: unavailable}, nil
	}

	return &CartResolution{
		Updated:     true,
		Cart:        cart,
		Unavailable: unavailable,
		Bill:        b.billText(cart, entries),
	}, nil
}

// billText renders the deterministic itemized bill: one line per item,
// totals last.
func (b *CartBuilder) billText(cart models.CartItems, entries map[int64]*models.CatalogEntry) string {
	var sb strings.Builder
	var subtotal, tax int64
	for _, item := range cart {
		line := item.LineTotal()
		subtotal += line
		if entry, ok := entries[item.ProductID]; ok {
			tax += models.GSTInclusive(line, entry.GSTRate)
		}
		fmt.Fprintf(&sb, "• %s %d%s — %s\n", item.Name, item.Quantity, item.Unit, models.FormatPaise(line))
	}
	fmt.Fprintf(&sb, "\nSubtotal: %s\n", models.FormatPaise(subtotal))
	fmt.Fprintf(&sb, "Tax (incl.): %s\n", models.FormatPaise(tax))
	fmt.Fprintf(&sb, "💰 Total: %s", models.FormatPaise(subtotal))
	return sb.String()
}
