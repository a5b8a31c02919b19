package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/and161185/topupbd/internal/catalogue"
	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"github.com/and161185/topupbd/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderStep string

const (
	Selecting      OrderStep = "selecting"
	PaymentPending OrderStep = "payment-pending"
	Verifying      OrderStep = "verifying"
	Success        OrderStep = "success"
)

// OrderState is a snapshot of the order workflow.
type OrderState struct {
	Step          OrderStep       `json:"step"`
	Category      string          `json:"category"`
	Service       *model.Service  `json:"service,omitempty"`
	Link          string          `json:"link"`
	Quantity      string          `json:"quantity"`
	Charge        decimal.Decimal `json:"charge"`
	TransactionID string          `json:"transactionId"`
	LastOrder     *model.Order    `json:"lastOrder,omitempty"`
}

// OrderWorkflow takes a visitor from service selection through manual
// payment confirmation to an order recorded in the OrderBook.
type OrderWorkflow struct {
	mu        sync.Mutex
	catalogue *catalogue.Catalogue
	pricing   catalogue.Pricing
	provider  Provider
	book      *OrderBook
	logger    *zap.SugaredLogger

	step          OrderStep
	category      model.Category
	service       *model.Service
	link          string
	quantity      string
	charge        decimal.Decimal
	transactionID string
	lastOrder     *model.Order
}

func NewOrderWorkflow(cat *catalogue.Catalogue, pricing catalogue.Pricing, provider Provider, book *OrderBook, logger *zap.SugaredLogger) *OrderWorkflow {
	w := &OrderWorkflow{
		pricing:  pricing,
		provider: provider,
		book:     book,
		logger:   logger,
		step:     Selecting,
	}
	w.SetCatalogue(cat)
	return w
}

// SetCatalogue swaps the catalogue. The current selection is kept when the
// new catalogue still has it, otherwise the default selection is applied.
func (w *OrderWorkflow) SetCatalogue(cat *catalogue.Catalogue) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.catalogue = cat
	if w.service != nil {
		if svc, ok := cat.Service(w.category.ID, w.service.ID); ok {
			w.category, _ = cat.Category(w.category.ID)
			w.service = &svc
			w.recompute()
			return
		}
	}

	w.category = model.Category{}
	w.service = nil
	if c, s, ok := cat.Default(); ok {
		w.category = c
		w.service = &s
	}
	w.recompute()
}

func (w *OrderWorkflow) State() OrderState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state()
}

func (w *OrderWorkflow) state() OrderState {
	st := OrderState{
		Step:          w.step,
		Category:      w.category.ID,
		Link:          w.link,
		Quantity:      w.quantity,
		Charge:        w.charge,
		TransactionID: w.transactionID,
	}
	if w.service != nil {
		svc := *w.service
		st.Service = &svc
	}
	if w.lastOrder != nil {
		o := *w.lastOrder
		st.LastOrder = &o
	}
	return st
}

// SelectCategory selects a category and its first service.
func (w *OrderWorkflow) SelectCategory(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != Selecting {
		return nil
	}

	cat, ok := w.catalogue.Category(id)
	if !ok {
		return errs.ErrUnknownCategory
	}

	w.category = cat
	w.service = nil
	if len(cat.Services) > 0 {
		svc := cat.Services[0]
		w.service = &svc
	}
	w.recompute()
	return nil
}

// SelectService selects a service within the current category.
func (w *OrderWorkflow) SelectService(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != Selecting {
		return nil
	}

	svc, ok := w.catalogue.Service(w.category.ID, id)
	if !ok {
		return errs.ErrUnknownService
	}

	w.service = &svc
	w.recompute()
	return nil
}

func (w *OrderWorkflow) SetLink(link string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == Selecting {
		w.link = link
	}
}

func (w *OrderWorkflow) SetQuantity(quantity string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == Selecting {
		w.quantity = quantity
		w.recompute()
	}
}

// recompute derives the charge from quantity and service. Callers hold mu.
func (w *OrderWorkflow) recompute() {
	qty, ok := utils.ParseQuantity(w.quantity)
	if w.service == nil || !ok {
		w.charge = decimal.Zero
		return
	}
	w.charge = w.pricing.Charge(qty, w.service.RatePer1000)
}

// Submit moves to payment-pending when the form is complete. The upper
// bound (service max) is shown to users but not enforced here.
func (w *OrderWorkflow) Submit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != Selecting || w.link == "" || w.service == nil {
		return false
	}

	qty, ok := utils.ParseQuantity(w.quantity)
	if !ok || qty < w.service.Min {
		return false
	}

	w.step = PaymentPending
	return true
}

func (w *OrderWorkflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == PaymentPending {
		w.step = Selecting
	}
}

// Verify places the order with the provider once the visitor has entered
// the transaction id of their manual transfer. The transfer itself is not
// checked; an operator reconciles payments by hand.
func (w *OrderWorkflow) Verify(ctx context.Context, transactionID string) (*model.Order, error) {
	transactionID = strings.ToUpper(strings.TrimSpace(transactionID))

	w.mu.Lock()
	if w.step != PaymentPending || transactionID == "" || w.service == nil {
		w.mu.Unlock()
		return nil, nil
	}

	qty, _ := utils.ParseQuantity(w.quantity)
	draft := model.Order{
		Category:      w.category.Name,
		Service:       w.service.Name,
		Link:          w.link,
		Quantity:      qty,
		Charge:        w.charge,
		TransactionID: transactionID,
		Status:        model.Pending,
	}
	serviceID := w.service.ID
	w.transactionID = transactionID
	w.step = Verifying
	w.mu.Unlock()

	id, err := w.provider.AddOrder(ctx, serviceID, draft.Link, draft.Quantity)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.logger.Errorf("place order: %v", err)
		w.step = PaymentPending
		return nil, err
	}

	draft.ID = id
	draft.CreatedAt = time.Now()
	w.book.Add(draft)
	monitoring.TrackOrderPlaced()

	w.lastOrder = &draft
	w.step = Success
	order := draft
	return &order, nil
}

// Reset clears the form and returns to service selection.
func (w *OrderWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == Verifying {
		return
	}

	w.step = Selecting
	w.link = ""
	w.quantity = ""
	w.transactionID = ""
	w.lastOrder = nil
	w.recompute()
}
