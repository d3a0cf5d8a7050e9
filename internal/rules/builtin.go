package rules

import (
	"encoding/json"

	"github.com/checkoutlens/checkout-lens/internal/models"
)

// FunctionCatalog maps the names rule packs may reference to their
// implementations.
type FunctionCatalog struct {
	Predicates map[string]func(models.Interaction) bool
	Extractors map[string]func(models.Interaction) (any, bool)
	Validators map[string]func(models.Interaction) bool
}

// Catalog returns the built-in predicate, extractor and validator functions.
// Rule packs loaded from YAML resolve names against this catalog.
func Catalog() FunctionCatalog {
	return FunctionCatalog{
		Predicates: map[string]func(models.Interaction) bool{
			"has-payment-token": func(i models.Interaction) bool {
				_, ok := models.ExtractPaymentToken(i)
				return ok
			},
			"has-delivery-address":      bodyHasKey("deliveryAddress", "shippingAddress"),
			"has-billing-address":       bodyHasKey("billingAddress"),
			"has-delivery-method":       bodyHasKey("deliveryMethodId", "deliveryGroups"),
			"has-cart-items":            bodyHasKey("cartItems", "cartId"),
			"has-inventory-reservation": bodyHasKey("reservationId", "inventoryReservationId"),
		},
		Extractors: map[string]func(models.Interaction) (any, bool){
			"checkout-id":   stringExtractor(models.ExtractCheckoutID),
			"store-id":      stringExtractor(models.ExtractStoreID),
			"payment-token": stringExtractor(models.ExtractPaymentToken),
			"error-messages": func(i models.Interaction) (any, bool) {
				msgs := models.ErrorMessages(i)
				if len(msgs) == 0 {
					return nil, false
				}
				return msgs, true
			},
			"cart-total":      fieldExtractor("grandTotalAmount", "totalAmount"),
			"order-number":    fieldExtractor("orderNumber", "orderReferenceNumber"),
			"delivery-method": fieldExtractor("deliveryMethodId", "shippingMethod"),
		},
		Validators: map[string]func(models.Interaction) bool{
			"status-ok": func(i models.Interaction) bool {
				return !i.Failed()
			},
			"no-errors": func(i models.Interaction) bool {
				return len(models.ErrorMessages(i)) == 0
			},
			"has-checkout-id": func(i models.Interaction) bool {
				_, ok := models.ExtractCheckoutID(i)
				return ok
			},
			"has-order-number": func(i models.Interaction) bool {
				_, ok := fieldExtractor("orderNumber", "orderReferenceNumber")(i)
				return ok
			},
		},
	}
}

// Builtin returns a registry populated with the default checkout rule set:
// the seven flow stages plus payload-sniffing companions for calls that
// address a stage through the checkout resource itself rather than a
// dedicated endpoint.
func Builtin() *Registry {
	cat := Catalog()
	reg := NewRegistry()
	mustRegister(reg, Rule{
		Name:        "payment",
		StageLabel:  "Payment Submission",
		Priority:    90,
		URLPatterns: []string{"/payment"},
		Methods:     []string{"GET", "POST"},
		Extractors:  pick(cat, "checkout-id", "payment-token", "error-messages"),
		Validators:  pickValidators(cat, "status-ok", "no-errors"),
	})
	mustRegister(reg, Rule{
		Name:       "payment-token",
		StageLabel: "Payment Submission",
		Priority:   88,
		Methods:    []string{"POST", "PATCH"},
		Predicates: pickPredicates(cat, "has-payment-token"),
		Extractors: pick(cat, "checkout-id", "payment-token", "error-messages"),
		Validators: pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:        "order",
		StageLabel:  "Order Placement",
		Priority:    85,
		URLPatterns: []string{"/orders"},
		Methods:     []string{"GET", "POST"},
		Extractors:  pick(cat, "checkout-id", "order-number", "error-messages"),
		Validators:  pickValidators(cat, "status-ok", "has-order-number"),
	})
	mustRegister(reg, Rule{
		Name:        "inventory",
		StageLabel:  "Inventory Check",
		Priority:    80,
		URLPatterns: []string{"/inventory", "/reservations"},
		Methods:     []string{"GET", "POST"},
		Extractors:  pick(cat, "store-id", "error-messages"),
		Validators:  pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:        "tax",
		StageLabel:  "Tax Calculation",
		Priority:    75,
		URLPatterns: []string{"taxes"},
		Methods:     []string{"GET", "POST", "PATCH"},
		Extractors:  pick(cat, "checkout-id", "error-messages"),
		Validators:  pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:        "delivery",
		StageLabel:  "Delivery Method Selection",
		Priority:    70,
		URLPatterns: []string{"/delivery"},
		Methods:     []string{"GET", "POST", "PATCH", "PUT"},
		Extractors:  pick(cat, "checkout-id", "delivery-method", "error-messages"),
		Validators:  pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:       "delivery-method",
		StageLabel: "Delivery Method Selection",
		Priority:   68,
		Methods:    []string{"POST", "PATCH", "PUT"},
		Predicates: pickPredicates(cat, "has-delivery-method"),
		Extractors: pick(cat, "checkout-id", "delivery-method", "error-messages"),
		Validators: pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:        "address",
		StageLabel:  "Address Entry",
		Priority:    65,
		URLPatterns: []string{"/address"},
		Methods:     []string{"GET", "POST", "PATCH", "PUT"},
		Extractors:  pick(cat, "checkout-id", "store-id", "error-messages"),
		Validators:  pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:       "delivery-address",
		StageLabel: "Address Entry",
		Priority:   63,
		Methods:    []string{"POST", "PATCH", "PUT"},
		Predicates: pickPredicates(cat, "has-delivery-address"),
		Extractors: pick(cat, "checkout-id", "error-messages"),
		Validators: pickValidators(cat, "status-ok"),
	})
	mustRegister(reg, Rule{
		Name:        "cart",
		StageLabel:  "Cart Review",
		Priority:    60,
		URLPatterns: []string{"/carts", "/cart-items"},
		Methods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		Extractors:  pick(cat, "cart-total", "store-id", "error-messages"),
		Validators:  pickValidators(cat, "status-ok"),
	})
	return reg
}

// mustRegister backs Builtin; the default rules are static, so a failure is
// a programming error.
func mustRegister(reg *Registry, rule Rule) {
	if err := reg.Register(rule); err != nil {
		panic(err)
	}
}

func pick(cat FunctionCatalog, names ...string) []Extractor {
	out := make([]Extractor, 0, len(names))
	for _, name := range names {
		out = append(out, Extractor{Name: name, Extract: cat.Extractors[name]})
	}
	return out
}

func pickPredicates(cat FunctionCatalog, names ...string) []Predicate {
	out := make([]Predicate, 0, len(names))
	for _, name := range names {
		out = append(out, Predicate{Name: name, Match: cat.Predicates[name]})
	}
	return out
}

func pickValidators(cat FunctionCatalog, names ...string) []Validator {
	out := make([]Validator, 0, len(names))
	for _, name := range names {
		out = append(out, Validator{Name: name, Validate: cat.Validators[name]})
	}
	return out
}

func bodyHasKey(keys ...string) func(models.Interaction) bool {
	return func(i models.Interaction) bool {
		for _, raw := range []json.RawMessage{i.RequestBody, i.ResponseBody} {
			body, ok := models.BodyValue(raw)
			if !ok {
				continue
			}
			for _, key := range keys {
				if models.HasKeyDeep(body, key) {
					return true
				}
			}
		}
		return false
	}
}

func stringExtractor(fn func(models.Interaction) (string, bool)) func(models.Interaction) (any, bool) {
	return func(i models.Interaction) (any, bool) {
		s, ok := fn(i)
		if !ok {
			return nil, false
		}
		return s, true
	}
}

func fieldExtractor(keys ...string) func(models.Interaction) (any, bool) {
	return func(i models.Interaction) (any, bool) {
		for _, raw := range []json.RawMessage{i.ResponseBody, i.RequestBody} {
			body, ok := models.BodyValue(raw)
			if !ok {
				continue
			}
			for _, key := range keys {
				if v, ok := models.FindKeyDeep(body, key); ok {
					return v, true
				}
			}
		}
		return nil, false
	}
}
