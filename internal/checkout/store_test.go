package checkout

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-be/internal/address"
	"storefront-be/internal/cart"
	"storefront-be/internal/notify"
	"storefront-be/internal/party"
	"storefront-be/internal/payment"
	"storefront-be/internal/sale"
	"storefront-be/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const guestPartyID int64 = 1

// memStore is an in-memory backend for every repository and service the
// checkout handlers talk to.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	products  map[int64]*sale.Product
	sales     map[int64]*sale.Sale
	carts     map[int64]*cart.Cart
	parties   map[int64]*party.Party
	contacts  []*party.ContactMechanism
	users     map[int64]*user.User
	addresses map[int64]*address.Address
	txs       map[uuid.UUID]*payment.Transaction
	profiles  map[int64]*payment.Profile
	mails     []notify.Message
}

func newMemStore() *memStore {
	st := &memStore{
		nextID:    100,
		products:  map[int64]*sale.Product{},
		sales:     map[int64]*sale.Sale{},
		carts:     map[int64]*cart.Cart{},
		parties:   map[int64]*party.Party{guestPartyID: {ID: guestPartyID, Name: "Guest"}},
		users:     map[int64]*user.User{},
		addresses: map[int64]*address.Address{},
		txs:       map[uuid.UUID]*payment.Transaction{},
		profiles:  map[int64]*payment.Profile{},
	}
	return st
}

func (st *memStore) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *memStore) addProduct(name, price string) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.id()
	st.products[id] = &sale.Product{ID: id, Name: name, ListPrice: decimal.RequireFromString(price)}
	return id
}

func (st *memStore) addUser(email, password string) *user.User {
	u, err := st.userService().Register(context.Background(), "", email, password)
	if err != nil {
		panic(err)
	}
	return u
}

func (st *memStore) partyService() party.Service { return party.NewService(memParties{st}) }

func (st *memStore) userService() user.Service { return user.NewService(memUsers{st}) }

func (st *memStore) addAddress(partyID int64, name string) *address.Address {
	st.mu.Lock()
	defer st.mu.Unlock()
	a := &address.Address{ID: st.id(), PartyID: partyID, Name: name, Street: "1 Main St", Zip: "10001", City: "New York", Country: "US", Subdivision: "NY"}
	st.addresses[a.ID] = a
	return a
}

func (st *memStore) partyCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.parties)
}

func (st *memStore) addressCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.addresses)
}

func (st *memStore) sale(id int64) sale.Sale {
	st.mu.Lock()
	defer st.mu.Unlock()
	return *st.sales[id]
}

func (st *memStore) onlySale() sale.Sale {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.sales {
		return *s
	}
	return sale.Sale{}
}

// sale.Repository

type memSales struct{ *memStore }

func (m memSales) GetByID(_ context.Context, id int64) (*sale.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, sale.ErrSaleNotFound
	}
	cp := *s
	cp.Lines = append([]sale.Line(nil), s.Lines...)
	return &cp, nil
}

func (m memSales) Create(_ context.Context, s *sale.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.CreatedAt = time.Now()
	cp := *s
	m.sales[s.ID] = &cp
	return nil
}

func (m memSales) GetProduct(_ context.Context, id int64) (*sale.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, sale.ErrProductNotFound
	}
	return p, nil
}

func (m memSales) AddLine(_ context.Context, saleID int64, p *sale.Product, qty decimal.Decimal) error {
	return m.editable(saleID, func(s *sale.Sale) {
		for i := range s.Lines {
			if s.Lines[i].ProductID == p.ID {
				s.Lines[i].Quantity = s.Lines[i].Quantity.Add(qty)
				return
			}
		}
		s.Lines = append(s.Lines, sale.Line{
			ID:          m.id(),
			ProductID:   p.ID,
			Description: p.Name,
			Quantity:    qty,
			UnitPrice:   p.ListPrice,
		})
	})
}

func (m memSales) SetParty(_ context.Context, saleID, partyID int64) error {
	return m.editable(saleID, func(s *sale.Sale) {
		s.PartyID = partyID
		s.ShipmentAddressID = nil
		s.InvoiceAddressID = nil
	})
}

func (m memSales) SetShipmentAddress(_ context.Context, saleID, addressID int64) error {
	return m.editable(saleID, func(s *sale.Sale) { s.ShipmentAddressID = &addressID })
}

func (m memSales) SetInvoiceAddress(_ context.Context, saleID, addressID int64) error {
	return m.editable(saleID, func(s *sale.Sale) { s.InvoiceAddressID = &addressID })
}

func (m memSales) SetComment(_ context.Context, saleID int64, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[saleID]
	if !ok || !s.CanComment() {
		return sale.ErrCommentNotAllowed
	}
	s.Comment = comment
	return nil
}

func (m memSales) Confirm(_ context.Context, saleID int64, code *string) error {
	err := m.editable(saleID, func(s *sale.Sale) {
		s.State = sale.StateConfirmed
		if code != nil {
			s.GuestAccessCode = code
		}
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.SaleID != nil && *c.SaleID == saleID {
			c.SaleID = nil
		}
	}
	return nil
}

func (m memSales) ListByParty(_ context.Context, partyID int64, limit, offset int) ([]sale.Summary, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []sale.Summary
	for _, s := range m.sales {
		if s.PartyID == partyID && s.State != sale.StateDraft {
			all = append(all, sale.Summary{ID: s.ID, State: s.State, Currency: s.Currency, Total: s.TotalAmount(), CreatedAt: s.CreatedAt})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m memSales) editable(saleID int64, fn func(*sale.Sale)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[saleID]
	if !ok {
		return sale.ErrSaleNotFound
	}
	if !s.Editable() {
		return sale.ErrSaleLocked
	}
	fn(s)
	return nil
}

// cart.Repository

type memCarts struct{ *memStore }

func (m memCarts) find(match func(*cart.Cart) bool) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, cart.ErrCartNotFound
}

func (m memCarts) FindBySession(_ context.Context, sessionID string) (*cart.Cart, error) {
	return m.find(func(c *cart.Cart) bool { return c.SessionID == sessionID })
}

func (m memCarts) FindByUser(_ context.Context, userID int64) (*cart.Cart, error) {
	return m.find(func(c *cart.Cart) bool { return c.UserID != nil && *c.UserID == userID })
}

func (m memCarts) Create(_ context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	cp := *c
	m.carts[c.ID] = &cp
	return nil
}

func (m memCarts) SetSale(_ context.Context, cartID, saleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cartID].SaleID = &saleID
	return nil
}

func (m memCarts) SetUser(_ context.Context, cartID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cartID].UserID = &userID
	return nil
}

// party.Repository

type memParties struct{ *memStore }

func (m memParties) GetByID(_ context.Context, id int64) (*party.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return nil, party.ErrPartyNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memParties) CreateWithEmail(_ context.Context, p *party.Party, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = time.Now()
	cp := *p
	m.parties[p.ID] = &cp
	m.contacts = append(m.contacts, &party.ContactMechanism{ID: m.id(), PartyID: p.ID, Type: party.ContactEmail, Value: email})
	return nil
}

func (m memParties) UpdateName(_ context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return party.ErrPartyNotFound
	}
	p.Name = name
	return nil
}

func (m memParties) findContact(match func(*party.ContactMechanism) bool) (*party.ContactMechanism, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, party.ErrContactNotFound
}

func (m memParties) FindContact(_ context.Context, partyID int64, typ, value string) (*party.ContactMechanism, error) {
	return m.findContact(func(c *party.ContactMechanism) bool {
		return c.PartyID == partyID && c.Type == typ && c.Value == value
	})
}

func (m memParties) FirstContact(_ context.Context, partyID int64, typ string) (*party.ContactMechanism, error) {
	return m.findContact(func(c *party.ContactMechanism) bool {
		return c.PartyID == partyID && c.Type == typ
	})
}

// CreateContact honours the (party, type, value) unique key.
func (m memParties) CreateContact(_ context.Context, c *party.ContactMechanism) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contacts {
		if existing.PartyID == c.PartyID && existing.Type == c.Type && existing.Value == c.Value {
			c.ID = existing.ID
			return nil
		}
	}
	c.ID = m.id()
	cp := *c
	m.contacts = append(m.contacts, &cp)
	return nil
}

func (m memParties) UpdateContactValue(_ context.Context, id int64, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.ID == id {
			c.Value = value
		}
	}
	return nil
}

func (m memParties) DeleteAbandonedGuests(_ context.Context, createdBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.parties {
		if p.GuestSession == nil || !p.CreatedAt.Before(createdBefore) {
			continue
		}
		ordered := false
		for _, s := range m.sales {
			if s.PartyID == id && !s.Editable() {
				ordered = true
			}
		}
		if !ordered {
			delete(m.parties, id)
			n++
		}
	}
	return n, nil
}

func (m memParties) contactsOf(partyID int64, typ string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.contacts {
		if c.PartyID == partyID && c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}

// user.Repository

type memUsers struct{ *memStore }

func (m memUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailExists
		}
	}
	p := &party.Party{ID: m.id(), Name: u.Name, CreatedAt: time.Now()}
	m.parties[p.ID] = p
	m.contacts = append(m.contacts, &party.ContactMechanism{ID: m.id(), PartyID: p.ID, Type: party.ContactEmail, Value: u.Email})

	u.ID = m.id()
	u.PartyID = p.ID
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// address.Repository

type memAddresses struct{ *memStore }

func (m memAddresses) GetByID(_ context.Context, id int64) (*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, address.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAddresses) ListByParty(_ context.Context, partyID int64) ([]*address.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*address.Address
	for _, a := range m.addresses {
		if a.PartyID == partyID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memAddresses) Create(_ context.Context, a *address.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

func (m memAddresses) Update(_ context.Context, a *address.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.addresses[a.ID] = &cp
	return nil
}

// payment.Repository

type memPayments struct{ *memStore }

func (m memPayments) CreateProfile(_ context.Context, p *payment.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m memPayments) GetProfile(_ context.Context, id int64) (*payment.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, payment.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memPayments) ListProfiles(_ context.Context, partyID int64) ([]payment.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payment.Profile
	for _, p := range m.profiles {
		if p.PartyID == partyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m memPayments) CreateTransaction(_ context.Context, tx *payment.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.State == "" {
		tx.State = payment.StatePending
	}
	cp := *tx
	m.txs[tx.ID] = &cp
	return nil
}

func (m memPayments) UpdateTransaction(_ context.Context, id uuid.UUID, state payment.TransactionState, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := m.txs[id]
	tx.State = state
	tx.ProviderReference = reference
	return nil
}

func (m memPayments) GetTransaction(_ context.Context, id uuid.UUID) (*payment.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, payment.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m memPayments) SettleTransaction(_ context.Context, id uuid.UUID, state payment.TransactionState, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.State.IsFinal() {
		return false, nil
	}
	tx.State = state
	if reference != "" {
		tx.ProviderReference = reference
	}
	return true, nil
}

func (m memPayments) transactions() []payment.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payment.Transaction
	for _, tx := range m.txs {
		out = append(out, *tx)
	}
	return out
}

// notify.Mailer

type memMailer struct{ *memStore }

func (m memMailer) QueueMail(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, msg)
	return nil
}
