package checkout

const (
	PathCart            = "/cart"
	PathOneStep         = "/checkout"
	PathSignIn          = "/checkout/sign-in"
	PathShippingAddress = "/checkout/shipping-address"
	PathValidateAddress = "/checkout/validate-address"
	PathDeliveryMethod  = "/checkout/delivery-method"
	PathBillingAddress  = "/checkout/billing-address"
	PathPayment         = "/checkout/payment"
)

type Step int

const (
	StepSignIn Step = iota
	StepShippingAddress
	StepValidateAddress
	StepDeliveryMethod
	StepBillingAddress
	StepPayment
	StepOneStep
)

func (s Step) String() string {
	switch s {
	case StepSignIn:
		return "sign-in"
	case StepShippingAddress:
		return "shipping-address"
	case StepValidateAddress:
		return "validate-address"
	case StepDeliveryMethod:
		return "delivery-method"
	case StepBillingAddress:
		return "billing-address"
	case StepPayment:
		return "payment"
	case StepOneStep:
		return "one-step"
	}
	return "unknown"
}

// Guard is a step precondition. When it does not hold it names the page
// the visitor must go back to.
type Guard func(c *Context) (redirect string, ok bool)

func cartNotEmpty(c *Context) (string, bool) {
	if c.Sale == nil || c.Sale.IsEmpty() {
		return PathCart, false
	}
	return "", true
}

func signedIn(c *Context) (string, bool) {
	if !c.SignedIn() {
		return PathSignIn, false
	}
	return "", true
}

func hasShipmentAddress(c *Context) (string, bool) {
	if c.Sale.ShipmentAddressID == nil {
		return PathShippingAddress, false
	}
	return "", true
}

// Guards are evaluated in order; the first failing one wins.
var defaultGuards = map[Step][]Guard{
	StepSignIn:          {cartNotEmpty},
	StepShippingAddress: {cartNotEmpty, signedIn},
	StepValidateAddress: {cartNotEmpty, signedIn, hasShipmentAddress},
	StepDeliveryMethod:  {cartNotEmpty, signedIn, hasShipmentAddress},
	StepBillingAddress:  {cartNotEmpty, signedIn},
	StepPayment:         {cartNotEmpty, signedIn, hasShipmentAddress},
	StepOneStep:         {cartNotEmpty},
}

type Sequencer struct {
	guards map[Step][]Guard
}

func NewSequencer() *Sequencer {
	return &Sequencer{guards: defaultGuards}
}

// Check returns where to redirect when step may not be entered.
func (s *Sequencer) Check(step Step, c *Context) (string, bool) {
	for _, g := range s.guards[step] {
		if to, ok := g(c); !ok {
			return to, false
		}
	}
	return "", true
}
