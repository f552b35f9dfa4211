package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"duo/internal/core"
	"duo/internal/ledger"
	"duo/internal/log"
	"duo/internal/sheets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds every store call when none is configured.
const DefaultTimeout = 10 * time.Second

var (
	ErrInvalidSplit = errors.New("split must be in (0,1]")
	// ErrRefundEntry rejects refunds entered as plain rows; they go through
	// SettleRefund so the settlement policy runs.
	ErrRefundEntry = errors.New("refunds are recorded with SettleRefund")
)

// LedgerService runs intents against the store. Writes are serialised; each
// call loads a fresh snapshot, so nothing is cached between calls.
type LedgerService struct {
	mu      sync.RWMutex
	store   sheets.Store
	engine  *ledger.Engine
	timeout time.Duration
	logger  *log.StructuredLogger
	newID   func() string
	now     func() time.Time
}

func NewLedgerService(store sheets.Store, engine *ledger.Engine, timeout time.Duration, logger *log.Logger) *LedgerService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:   store,
		engine:  engine,
		timeout: timeout,
		logger:  log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// NewTransaction is a row as typed in by a partner. Amount is unsigned, the
// sign comes from Kind.
type NewTransaction struct {
	Date        core.Date
	Kind        core.Kind
	Description string
	Amount      core.Money
	LiveID      string
	Settled     bool
}

// Engine exposes the configured policies.
func (s *LedgerService) Engine() *ledger.Engine { return s.engine }

// AddTransaction appends one sale or purchase and returns it with the
// store's reference.
func (s *LedgerService) AddTransaction(ctx context.Context, in NewTransaction) (core.Transaction, string, error) {
	if in.Amount.Cents < 0 {
		return core.Transaction{}, "", core.NewValidationError("amount", core.ErrInvalidAmount)
	}
	if in.Kind == core.KindRefund {
		return core.Transaction{}, "", core.NewValidationError("kind", ErrRefundEntry)
	}
	tx := core.Transaction{
		ID:          s.newID(),
		Date:        in.Date,
		Kind:        in.Kind,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		LiveID:      strings.TrimSpace(in.LiveID),
		Settled:     in.Settled,
	}
	if in.Kind == core.KindPurchase {
		tx.Amount = in.Amount.Neg()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, "", core.NewValidationError("transaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ref, err := s.store.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, "", storeError("append", err)
	}
	s.logger.LogTransactionAdded(ctx, tx.ID, string(tx.Kind), tx.Amount.Cents, ref)
	return tx, ref, nil
}

// BulkReplace validates rows as a whole and overwrites the stored ledger.
// Rows without an ID get one.
func (s *LedgerService) BulkReplace(ctx context.Context, txs []core.Transaction) (ledger.Ledger, error) {
	rows := slices.Clone(txs)
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = s.newID()
		}
	}
	l, err := ledger.New(rows)
	if err != nil {
		return ledger.Ledger{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, l); err != nil {
		return ledger.Ledger{}, err
	}
	return l, nil
}

// SettleRefund records a payout to the partner and settles sales per the
// configured policy.
func (s *LedgerService) SettleRefund(ctx context.Context, req ledger.RefundRequest) (ledger.Ledger, error) {
	if req.ID == "" {
		req.ID = s.newID()
	}
	if req.Date.IsZero() {
		req.Date = core.DateOf(s.now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}
	next, err := s.engine.ApplyRefund(current, req)
	if err != nil {
		return ledger.Ledger{}, err
	}
	if err := s.save(ctx, next); err != nil {
		return ledger.Ledger{}, err
	}
	s.logger.LogRefundSettled(ctx, req.ID, req.Amount.Cents, string(s.engine.Config().Settlement), next.Len())
	return next, nil
}

// Ledger returns the stored rows, restricted to year when year is not zero.
func (s *LedgerService) Ledger(ctx context.Context, year int) (ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.load(ctx)
	if err != nil {
		return ledger.Ledger{}, err
	}
	if year != 0 {
		l = ledger.ByYear(l, year)
	}
	return l, nil
}

func (s *LedgerService) Summary(ctx context.Context, year int) (ledger.Summary, error) {
	l, err := s.Ledger(ctx, year)
	if err != nil {
		return ledger.Summary{}, err
	}
	return s.engine.Summarize(l), nil
}

// Progression returns one person's cumulative curve. A zero split uses the
// configured one.
func (s *LedgerService) Progression(ctx context.Context, split decimal.Decimal) ([]ledger.Point, error) {
	if split.IsZero() {
		split = s.engine.Config().PersonSplit
	}
	if !split.IsPositive() || split.GreaterThan(decimal.NewFromInt(1)) {
		return nil, core.NewValidationError("split", ErrInvalidSplit)
	}
	l, err := s.Ledger(ctx, 0)
	if err != nil {
		return nil, err
	}
	var points []ledger.Point
	for p := range ledger.PerPersonCumulative(l, split) {
		points = append(points, p)
	}
	return points, nil
}

func (s *LedgerService) Sessions(ctx context.Context, year int) ([]ledger.Session, error) {
	l, err := s.Ledger(ctx, year)
	if err != nil {
		return nil, err
	}
	return ledger.PairIntoSessions(l), nil
}

func (s *LedgerService) Years(ctx context.Context) ([]int, error) {
	l, err := s.Ledger(ctx, 0)
	if err != nil {
		return nil, err
	}
	return ledger.Years(l), nil
}

// NewLiveID returns an identifier to stamp on the rows of one live, such as
// "LIVE-20250309-1a2b3c4d".
func (s *LedgerService) NewLiveID() string {
	id := strings.ReplaceAll(s.newID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("LIVE-%s-%s", s.now().UTC().Format("20060102"), id)
}

// Ready loads the ledger once to prove the store answers.
func (s *LedgerService) Ready(ctx context.Context) error {
	_, err := s.Ledger(ctx, 0)
	return err
}

func (s *LedgerService) load(ctx context.Context) (ledger.Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	txs, err := s.store.Load(ctx)
	if err != nil {
		return ledger.Ledger{}, storeError("load", err)
	}
	return ledger.New(txs)
}

func (s *LedgerService) save(ctx context.Context, l ledger.Ledger) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, l.Transactions()); err != nil {
		return storeError("save", err)
	}
	return nil
}

// storeError keeps validation failures as they are and files everything else
// under PersistenceError.
func storeError(op string, err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return core.Persistence(op, err)
}
