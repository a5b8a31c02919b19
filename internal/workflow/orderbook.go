package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"go.uber.org/zap"
)

const refreshWorkers = 5

// Provider is the part of the provider API the order workflow needs.
type Provider interface {
	AddOrder(ctx context.Context, serviceID, link string, quantity int) (string, error)
	Status(ctx context.Context, orderID string) (string, error)
}

// OrderBook holds the orders placed during a visitor's session, newest first.
type OrderBook struct {
	mu       sync.Mutex
	orders   []model.Order
	provider Provider
	logger   *zap.SugaredLogger
}

func NewOrderBook(provider Provider, logger *zap.SugaredLogger) *OrderBook {
	return &OrderBook{provider: provider, logger: logger}
}

func (b *OrderBook) Add(order model.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append([]model.Order{order}, b.orders...)
}

func (b *OrderBook) Orders() []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *OrderBook) Get(id string) (model.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// Delete removes the order locally. Nothing is cancelled at the provider.
func (b *OrderBook) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, o := range b.orders {
		if o.ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return nil
		}
	}
	return errs.ErrOrderNotFound
}

// Refresh asks the provider for the order status and stores it lower-cased.
// On error the order is left untouched.
func (b *OrderBook) Refresh(ctx context.Context, id string) (model.Order, error) {
	order, ok := b.Get(id)
	if !ok {
		return model.Order{}, errs.ErrOrderNotFound
	}

	status, err := b.provider.Status(ctx, id)
	if err != nil {
		monitoring.TrackStatusRefresh(monitoring.ResultFailure)
		return order, fmt.Errorf("refresh order %s: %w", id, err)
	}
	monitoring.TrackStatusRefresh(monitoring.ResultOK)

	if status == "" {
		return order, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == id {
			b.orders[i].Status = model.OrderStatus(strings.ToLower(status))
			return b.orders[i], nil
		}
	}
	// deleted while the request was in flight
	return order, nil
}

// RefreshError reports the orders a bulk refresh could not update.
type RefreshError struct {
	Failed []string
	Total  int
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%d of %d orders failed to refresh: %v", len(e.Failed), e.Total, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// RefreshAll refreshes every order with one request each. A failing order
// never stops the others; all failures come back as a single *RefreshError.
func (b *OrderBook) RefreshAll(ctx context.Context) error {
	orders := b.Orders()
	if len(orders) == 0 {
		return nil
	}

	workerCount := refreshWorkers
	if len(orders) < workerCount {
		workerCount = len(orders)
	}

	ch := make(chan string, len(orders))
	for _, o := range orders {
		ch <- o.ID
	}
	close(ch)

	var (
		mu     sync.Mutex
		failed []string
		first  error
		wg     sync.WaitGroup
	)

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ch {
				if _, err := b.Refresh(ctx, id); err != nil {
					b.logger.Errorf("refresh order status: %v", err)
					mu.Lock()
					failed = append(failed, id)
					if first == nil {
						first = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		return &RefreshError{Failed: failed, Total: len(orders), Err: first}
	}
	return nil
}

func (b *OrderBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}
