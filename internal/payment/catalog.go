package payment

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GatewayConfig declares one configured payment gateway.
type GatewayConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Method   Method `yaml:"method"`
	Provider string `yaml:"provider"`
	// RedirectURL is the hosted payment page for redirect gateways;
	// "{transaction}" is replaced with the transaction id.
	RedirectURL string `yaml:"redirect_url"`
}

// AlternateMethod is a non card way to pay, such as cheque or bank transfer.
type AlternateMethod struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	GatewayID    string `yaml:"gateway"`
	Instructions string `yaml:"instructions"`
	Sequence     int    `yaml:"sequence"`
}

// Catalog is the storefront's payment configuration.
type Catalog struct {
	Currency         string            `yaml:"currency"`
	CardGateway      string            `yaml:"card_gateway"`
	Gateways         []GatewayConfig   `yaml:"gateways"`
	AlternateMethods []AlternateMethod `yaml:"alternate_payment_methods"`
}

const defaultSequence = 100

func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payment catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize() error {
	if c.Currency == "" {
		c.Currency = "USD"
	}

	if c.CardGateway != "" {
		g, ok := c.Gateway(c.CardGateway)
		if !ok {
			return fmt.Errorf("%w: card gateway %q is not declared", ErrInvalidCatalog, c.CardGateway)
		}
		if g.Method != MethodCreditCard {
			return fmt.Errorf("%w: card gateway %q is not a credit_card gateway", ErrInvalidCatalog, g.ID)
		}
	}

	seen := map[int64]bool{}
	for i := range c.AlternateMethods {
		m := &c.AlternateMethods[i]
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate alternate method id %d", ErrInvalidCatalog, m.ID)
		}
		seen[m.ID] = true

		g, ok := c.Gateway(m.GatewayID)
		if !ok {
			return fmt.Errorf("%w: alternate method %q uses unknown gateway %q", ErrInvalidCatalog, m.Name, m.GatewayID)
		}
		if g.Method == MethodCreditCard {
			return fmt.Errorf("%w: alternate method %q cannot use a credit_card gateway", ErrInvalidCatalog, m.Name)
		}
		if m.Sequence == 0 {
			m.Sequence = defaultSequence
		}
	}

	sort.SliceStable(c.AlternateMethods, func(i, j int) bool {
		return c.AlternateMethods[i].Sequence < c.AlternateMethods[j].Sequence
	})
	return nil
}

func (c *Catalog) Gateway(id string) (*GatewayConfig, bool) {
	for i := range c.Gateways {
		if c.Gateways[i].ID == id {
			return &c.Gateways[i], true
		}
	}
	return nil, false
}

func (c *Catalog) Alternate(id int64) (*AlternateMethod, bool) {
	for i := range c.AlternateMethods {
		if c.AlternateMethods[i].ID == id {
			return &c.AlternateMethods[i], true
		}
	}
	return nil, false
}

// AcceptsCards reports whether the card form should be offered.
func (c *Catalog) AcceptsCards() bool {
	return c.CardGateway != ""
}
