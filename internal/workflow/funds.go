package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"github.com/and161185/topupbd/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FundsStep string

const (
	AmountEntry FundsStep = "amount-entry"
	VerifyEntry FundsStep = "verify-entry"
	Submitted   FundsStep = "submitted"
)

type FundsConfig struct {
	Minimum   decimal.Decimal
	Surcharge decimal.Decimal
	Delay     time.Duration
	Numbers   map[model.PaymentMethod]string
}

type FundsState struct {
	Step      FundsStep           `json:"step"`
	Method    model.PaymentMethod `json:"method"`
	PayTo     string              `json:"payTo"`
	Amount    string              `json:"amount"`
	Total     decimal.Decimal     `json:"total"`
	Minimum   decimal.Decimal     `json:"minimum"`
	Surcharge decimal.Decimal     `json:"surcharge"`
}

// FundsWorkflow records manual top-up requests. Nothing is credited: every
// request stays pending until an operator reconciles it out of band.
type FundsWorkflow struct {
	mu      sync.Mutex
	cfg     FundsConfig
	logger  *zap.SugaredLogger
	step    FundsStep
	method  model.PaymentMethod
	amount  string
	history []model.PaymentRecord
}

func NewFundsWorkflow(cfg FundsConfig, logger *zap.SugaredLogger) *FundsWorkflow {
	return &FundsWorkflow{
		cfg:    cfg,
		logger: logger,
		step:   AmountEntry,
		method: model.Nagad,
	}
}

func (f *FundsWorkflow) State() FundsState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return FundsState{
		Step:      f.step,
		Method:    f.method,
		PayTo:     f.cfg.Numbers[f.method],
		Amount:    f.amount,
		Total:     f.total(),
		Minimum:   f.cfg.Minimum,
		Surcharge: f.cfg.Surcharge,
	}
}

func (f *FundsWorkflow) SelectMethod(m model.PaymentMethod) error {
	if !m.Valid() {
		return errs.ErrUnknownMethod
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == Submitted {
		return nil
	}
	f.method = m
	f.step = AmountEntry
	return nil
}

func (f *FundsWorkflow) SetAmount(amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == AmountEntry {
		f.amount = amount
	}
}

// Continue advances to verify-entry when the amount reaches the minimum.
func (f *FundsWorkflow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != AmountEntry || strings.TrimSpace(f.amount) == "" {
		return nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
	if err != nil || amount.LessThan(f.cfg.Minimum) {
		return fmt.Errorf("minimum amount is %s BDT: %w", f.cfg.Minimum, errs.ErrBelowMinimum)
	}

	f.step = VerifyEntry
	return nil
}

func (f *FundsWorkflow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == VerifyEntry {
		f.step = AmountEntry
	}
}

// total is the entered amount plus the flat surcharge. Callers hold mu.
func (f *FundsWorkflow) total() decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
	if err != nil {
		return decimal.Zero
	}
	return amount.Add(f.cfg.Surcharge)
}

// Submit records a pending payment after a fixed processing delay. No
// payment provider is contacted.
func (f *FundsWorkflow) Submit(ctx context.Context, transactionID string) (*model.PaymentRecord, error) {
	transactionID = strings.ToUpper(strings.TrimSpace(transactionID))

	f.mu.Lock()
	if f.step != VerifyEntry || transactionID == "" {
		f.mu.Unlock()
		return nil, nil
	}
	amount, _ := decimal.NewFromString(strings.TrimSpace(f.amount))
	method := f.method
	f.step = Submitted
	f.mu.Unlock()

	timer := time.NewTimer(f.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		f.mu.Lock()
		f.step = VerifyEntry
		f.mu.Unlock()
		return nil, ctx.Err()
	case <-timer.C:
	}

	record := model.PaymentRecord{
		ID:            utils.RandomCode(9),
		Method:        method,
		Amount:        amount,
		TransactionID: transactionID,
		Status:        model.PaymentPending,
		CreatedAt:     time.Now(),
	}

	f.mu.Lock()
	f.history = append([]model.PaymentRecord{record}, f.history...)
	f.amount = ""
	f.step = AmountEntry
	f.mu.Unlock()

	monitoring.TrackFundRequest(string(method))
	f.logger.Infow("fund request submitted", "id", record.ID, "method", method, "amount", amount.String())

	return &record, nil
}

func (f *FundsWorkflow) History() []model.PaymentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PaymentRecord, len(f.history))
	copy(out, f.history)
	return out
}
