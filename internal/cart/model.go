package cart

// Cart ties a browser session, and the user once known, to the sale being
// built. SaleID is cleared when that sale is confirmed.
type Cart struct {
	ID        int64
	SessionID string
	UserID    *int64
	SaleID    *int64
}
