package trade

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	// Migration needs to be registered for every message introduced in the codec.
	// This is the convention to message versioning.
	migration.MustRegister(1, &CreateMsg{}, migration.NoModification)
	migration.MustRegister(1, &StartMsg{}, migration.NoModification)
	migration.MustRegister(1, &CancelMsg{}, migration.NoModification)
	migration.MustRegister(1, &AcceptMsg{}, migration.NoModification)
}

const (
	pathCreate = "trade/create"
	pathStart  = "trade/start"
	pathCancel = "trade/cancel"
	pathAccept = "trade/accept"

	// trade id is a sha256 sum
	tradeIDSize int = 32
)

var _ weave.Msg = (*CreateMsg)(nil)
var _ weave.Msg = (*StartMsg)(nil)
var _ weave.Msg = (*CancelMsg)(nil)
var _ weave.Msg = (*AcceptMsg)(nil)

// ROUTING, Path method fulfills weave.Msg interface to allow routing

func (CreateMsg) Path() string {
	return pathCreate
}

func (StartMsg) Path() string {
	return pathStart
}

func (CancelMsg) Path() string {
	return pathCancel
}

func (AcceptMsg) Path() string {
	return pathAccept
}

// VALIDATION, Validate method makes sure basic rules are enforced upon input data and fulfills weave.Msg interface

func (m *CreateMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := m.CounterDestination.Validate(); err != nil {
		return errors.Wrap(err, "counter destination")
	}
	if err := validateAmount(m.Offer); err != nil {
		return errors.Wrap(err, "offer")
	}
	if err := validateAmount(m.Request); err != nil {
		return errors.Wrap(err, "request")
	}
	return nil
}

func (m *StartMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := validateTradeID(m.TradeId); err != nil {
		return err
	}
	return errors.Wrap(validateAmount(m.Offer), "offer")
}

func (m *CancelMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	return validateTradeID(m.TradeId)
}

func (m *AcceptMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := validateTradeID(m.TradeId); err != nil {
		return err
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := m.CounterDestination.Validate(); err != nil {
		return errors.Wrap(err, "counter destination")
	}
	return errors.Wrap(validateAmount(m.Request), "request")
}

// validateAmount makes sure the amount is a positive coin of valid format
func validateAmount(amount *coin.Coin) error {
	if amount == nil {
		return errors.Wrap(errors.ErrAmount, "missing amount")
	}
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %v", amount)
	}
	return amount.Validate()
}

func validateTradeID(id []byte) error {
	if len(id) != tradeIDSize {
		return errors.Wrapf(errors.ErrInput, "trade id is sha256 and therefore should be exactly "+
			"%d bytes", tradeIDSize)
	}
	return nil
}
