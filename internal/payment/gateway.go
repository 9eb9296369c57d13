package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is what a capture charges: a raw card or a saved profile.
// Manual and redirect gateways need neither.
type Source struct {
	Card    *Card
	Profile *Profile
}

// Outcome is the gateway's verdict on a capture.
type Outcome struct {
	State             TransactionState
	ProviderReference string
	// RedirectURL, when set, is where the buyer completes payment.
	RedirectURL string
}

// Gateway collects money for a transaction.
type Gateway interface {
	Capture(ctx context.Context, tx *Transaction, src Source) (*Outcome, error)
}

// CardOwner identifies the buyer a card is stored for.
type CardOwner struct {
	Name  string
	Email string
}

// CardVault is implemented by gateways that can tokenize a card into a
// reusable profile.
type CardVault interface {
	StoreCard(ctx context.Context, owner CardOwner, card Card) (*Profile, error)
}

// Notifier is implemented by gateways whose provider settles transactions
// asynchronously by calling the payment webhook.
type Notifier interface {
	// ParseNotice authenticates a webhook delivery and decodes it.
	ParseNotice(header http.Header, body []byte) (*Notice, error)
}

// Credentials are the provider secrets gateways are built with.
type Credentials struct {
	StripeKey           string
	StripeWebhookSecret string
	// CallbackToken is shared with hosted payment pages and checked on
	// their settlement callbacks.
	CallbackToken string
}

// Registry maps configured gateway ids to their implementations.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: map[string]Gateway{}}
}

func (r *Registry) Register(id string, g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[id] = g
}

func (r *Registry) Lookup(id string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, id)
	}
	return g, nil
}

// BuildRegistry instantiates every gateway declared in the catalog.
func BuildRegistry(c *Catalog, creds Credentials) (*Registry, error) {
	reg := NewRegistry()
	for _, g := range c.Gateways {
		switch g.Method {
		case MethodManual:
			reg.Register(g.ID, ManualGateway{})
		case MethodRedirect:
			if !strings.Contains(g.RedirectURL, "{transaction}") {
				return nil, fmt.Errorf("%w: gateway %q needs a redirect_url with {transaction}", ErrInvalidCatalog, g.ID)
			}
			reg.Register(g.ID, NewRedirectGateway(g.RedirectURL, creds.CallbackToken))
		case MethodCreditCard:
			if g.Provider != "stripe" {
				return nil, fmt.Errorf("%w: card provider %q", ErrUnsupportedMethod, g.Provider)
			}
			reg.Register(g.ID, NewStripeGateway(creds.StripeKey, creds.StripeWebhookSecret))
		default:
			return nil, fmt.Errorf("%w: gateway %q method %q", ErrUnsupportedMethod, g.ID, g.Method)
		}
	}
	return reg, nil
}

// ManualGateway records payments settled outside the site, like cheques.
type ManualGateway struct{}

func (ManualGateway) Capture(_ context.Context, tx *Transaction, _ Source) (*Outcome, error) {
	return &Outcome{State: StateCompleted, ProviderReference: "manual:" + tx.ID.String()}, nil
}

// RedirectGateway hands the buyer to a hosted payment page. The transaction
// stays in progress until the provider calls back with the outcome.
type RedirectGateway struct {
	urlTemplate   string
	callbackToken string
}

func NewRedirectGateway(urlTemplate, callbackToken string) *RedirectGateway {
	return &RedirectGateway{urlTemplate: urlTemplate, callbackToken: callbackToken}
}

func (g *RedirectGateway) Capture(_ context.Context, tx *Transaction, _ Source) (*Outcome, error) {
	return &Outcome{
		State:       StateInProgress,
		RedirectURL: strings.ReplaceAll(g.urlTemplate, "{transaction}", tx.ID.String()),
	}, nil
}

// CallbackTokenHeader carries the shared secret on hosted page callbacks.
const CallbackTokenHeader = "X-Callback-Token"

// callbackPayload is the JSON a hosted payment page posts back.
type callbackPayload struct {
	ID         string   `json:"id"`
	ExternalID string   `json:"external_id"`
	Status     string   `json:"status"`
	Amount     *float64 `json:"amount,omitempty"`
}

func (g *RedirectGateway) ParseNotice(header http.Header, body []byte) (*Notice, error) {
	token := header.Get(CallbackTokenHeader)
	if g.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(g.callbackToken)) != 1 {
		return nil, ErrInvalidSignature
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotice, err)
	}
	id, err := uuid.Parse(payload.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("%w: external_id %q", ErrInvalidNotice, payload.ExternalID)
	}

	n := &Notice{TransactionID: id, ProviderReference: payload.ID}
	switch strings.ToUpper(payload.Status) {
	case "PAID", "SUCCEEDED":
		n.State = StateCompleted
	case "FAILED", "EXPIRED":
		n.State = StateFailed
	default:
		return nil, fmt.Errorf("%w: status %q", ErrNoticeIgnored, payload.Status)
	}
	if payload.Amount != nil {
		amount := decimal.NewFromFloat(*payload.Amount)
		n.Amount = &amount
	}
	return n, nil
}
