package trade

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
)

const (
	// pay trade cost up-front
	createTradeCost int64 = 300
	startTradeCost  int64 = 100
	cancelTradeCost int64 = 0
	acceptTradeCost int64 = 0
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r weave.Registry, auth x.Authenticator, cashctrl cash.Controller) {
	r = migration.SchemaMigratingRegistry("trade", r)
	bucket := NewBucket()

	r.Handle(&CreateMsg{}, CreateTradeHandler{auth, bucket})
	r.Handle(&StartMsg{}, StartTradeHandler{auth, bucket, cashctrl})
	r.Handle(&CancelMsg{}, CancelTradeHandler{auth, bucket, cashctrl})
	r.Handle(&AcceptMsg{}, AcceptTradeHandler{auth, bucket, cashctrl})
}

// RegisterQuery will register this bucket as "/trades"
func RegisterQuery(qr weave.QueryRouter) {
	NewBucket().Register("trades", qr)
}

//---- create

// CreateTradeHandler records the terms of a new trade. No coins are moved
// until the trade is started.
type CreateTradeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ weave.Handler = CreateTradeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h CreateTradeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	_, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	res := &weave.CheckResult{
		GasAllocated: createTradeCost,
	}
	return res, nil
}

// Deliver stores the trade in created phase under its derived key.
func (h CreateTradeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, authority, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	tradeID := TradeID(authority, msg.Destination, msg.CounterDestination)

	trade := &Trade{
		Metadata:           &weave.Metadata{Schema: 1},
		Address:            Condition(tradeID).Address(),
		Authority:          authority,
		Source:             msg.Source,
		Destination:        msg.Destination,
		CounterDestination: msg.CounterDestination,
		Offer:              msg.Offer,
		Request:            msg.Request,
		Phase:              PhaseCreated,
	}
	if _, err := h.bucket.Put(db, tradeID, trade); err != nil {
		return nil, errors.Wrap(err, "cannot store trade")
	}

	// return id of the trade to use in future calls
	res := &weave.DeliverResult{
		Data: tradeID,
	}
	return res, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CreateTradeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CreateMsg, weave.Address, error) {
	var msg CreateMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	signer := x.AnySigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	authority := signer.Address()

	// Source must authorize this, the deposit will be taken from there.
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, nil, errors.ErrUnauthorized
	}

	// The key is derived from the parties, so the same parties cannot
	// have two open trades.
	tradeID := TradeID(authority, msg.Destination, msg.CounterDestination)
	switch err := h.bucket.Has(db, tradeID); {
	case err == nil:
		return nil, nil, errors.Wrapf(errors.ErrDuplicate, "trade %x", tradeID)
	case errors.ErrNotFound.Is(err):
		// All good, the key is free.
	default:
		return nil, nil, errors.Wrap(err, "bucket")
	}

	return &msg, authority, nil
}

//---- start

// StartTradeHandler deposits the offered coin into the custodial trade
// account.
type StartTradeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.CoinMover
}

var _ weave.Handler = StartTradeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h StartTradeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	_, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	return &weave.CheckResult{GasAllocated: startTradeCost}, nil
}

// Deliver moves the offer from the source to the trade account and marks
// the trade as started.
func (h StartTradeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, trade, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if err := cash.MoveCoins(db, h.bank, trade.Source, trade.Address, coin.Coins{trade.Offer}); err != nil {
		return nil, err
	}

	trade.Phase = PhaseStarted
	if _, err := h.bucket.Put(db, msg.TradeId, trade); err != nil {
		return nil, errors.Wrap(err, "cannot store trade")
	}

	return &weave.DeliverResult{}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h StartTradeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*StartMsg, *Trade, error) {
	var msg StartMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	trade, err := loadTrade(h.bucket, db, msg.TradeId)
	if err != nil {
		return nil, nil, err
	}

	if trade.Phase != PhaseCreated {
		return nil, nil, errors.Wrapf(ErrPhase, "cannot start a %v trade", trade.Phase)
	}

	// The deposit must repeat the recorded offer exactly, ticker and value.
	if !msg.Offer.Equals(*trade.Offer) {
		return nil, nil, errors.Wrapf(ErrAmountMismatch, "offered %v, agreed on %v", msg.Offer, trade.Offer)
	}

	// Source must authorize this, the deposit is taken from there.
	if !h.auth.HasAddress(ctx, trade.Source) {
		return nil, nil, errors.ErrUnauthorized
	}

	return &msg, trade, nil
}

//---- cancel

// CancelTradeHandler returns the deposit to the source.
type CancelTradeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.CoinMover
}

var _ weave.Handler = CancelTradeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h CancelTradeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	_, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	return &weave.CheckResult{GasAllocated: cancelTradeCost}, nil
}

// Deliver moves the deposit back from the trade account to the source and
// marks the trade as cancelled. A cancelled trade stays in the store so it
// can never be settled again.
func (h CancelTradeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, trade, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if err := cash.MoveCoins(db, h.bank, trade.Address, trade.Source, coin.Coins{trade.Offer}); err != nil {
		return nil, err
	}

	trade.Phase = PhaseCancelled
	if _, err := h.bucket.Put(db, msg.TradeId, trade); err != nil {
		return nil, errors.Wrap(err, "cannot store trade")
	}

	return &weave.DeliverResult{}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CancelTradeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*CancelMsg, *Trade, error) {
	var msg CancelMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	trade, err := loadTrade(h.bucket, db, msg.TradeId)
	if err != nil {
		return nil, nil, err
	}

	if trade.Phase != PhaseStarted {
		return nil, nil, errors.Wrapf(ErrPhase, "cannot cancel a %v trade", trade.Phase)
	}

	// Only the trade authority can take the deposit back.
	if !h.auth.HasAddress(ctx, trade.Authority) {
		return nil, nil, errors.ErrUnauthorized
	}

	return &msg, trade, nil
}

//---- accept

// AcceptTradeHandler settles a started trade. The deposit is released to
// the destination and the requested coin is paid to the counter
// destination, both within the same delivery.
type AcceptTradeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
	bank   cash.CoinMover
}

var _ weave.Handler = AcceptTradeHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h AcceptTradeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	_, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	return &weave.CheckResult{GasAllocated: acceptTradeCost}, nil
}

// Deliver executes both settlement legs and marks the trade as completed.
// When either move fails the whole delivery fails and the store rolls
// back, so the trade is left started with the deposit untouched.
func (h AcceptTradeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	msg, trade, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Release the deposit to the counterparty.
	if err := cash.MoveCoins(db, h.bank, trade.Address, trade.Destination, coin.Coins{trade.Offer}); err != nil {
		return nil, err
	}
	// Pay the requested coin to the authority side.
	if err := cash.MoveCoins(db, h.bank, msg.Source, trade.CounterDestination, coin.Coins{trade.Request}); err != nil {
		return nil, err
	}

	trade.Phase = PhaseCompleted
	if _, err := h.bucket.Put(db, msg.TradeId, trade); err != nil {
		return nil, errors.Wrap(err, "cannot store trade")
	}

	return &weave.DeliverResult{}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h AcceptTradeHandler) validate(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*AcceptMsg, *Trade, error) {
	var msg AcceptMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}

	trade, err := loadTrade(h.bucket, db, msg.TradeId)
	if err != nil {
		return nil, nil, err
	}

	if trade.Phase != PhaseStarted {
		return nil, nil, errors.Wrapf(ErrPhase, "cannot accept a %v trade", trade.Phase)
	}

	// The acceptor must repeat the recorded accounts exactly. This guards
	// against settling against a different trade than the one agreed on.
	if !msg.Destination.Equals(trade.Destination) {
		return nil, nil, errors.Wrap(ErrAccountMismatch, "destination")
	}
	if !msg.CounterDestination.Equals(trade.CounterDestination) {
		return nil, nil, errors.Wrap(ErrAccountMismatch, "counter destination")
	}

	// And the payment must repeat the recorded request exactly.
	if !msg.Request.Equals(*trade.Request) {
		return nil, nil, errors.Wrapf(ErrAmountMismatch, "paying %v, agreed on %v", msg.Request, trade.Request)
	}

	// The acceptor pays from its own account.
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, nil, errors.ErrUnauthorized
	}

	return &msg, trade, nil
}

// loadTrade loads a trade from the bucket, returns an error if not present.
func loadTrade(bucket orm.ModelBucket, db weave.KVStore, tradeID []byte) (*Trade, error) {
	var trade Trade
	if err := bucket.One(db, tradeID, &trade); err != nil {
		return nil, errors.Wrapf(err, "trade %x", tradeID)
	}
	return &trade, nil
}
