package trade

import (
	"crypto/sha256"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &Trade{}, migration.NoModification)
}

var _ orm.CloneableData = (*Trade)(nil)

// Validate ensures the trade is valid
func (t *Trade) Validate() error {
	if err := t.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := t.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if err := t.Authority.Validate(); err != nil {
		return errors.Wrap(err, "authority")
	}
	if err := t.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := t.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := t.CounterDestination.Validate(); err != nil {
		return errors.Wrap(err, "counter destination")
	}
	if err := validateAmount(t.Offer); err != nil {
		return errors.Wrap(err, "offer")
	}
	if err := validateAmount(t.Request); err != nil {
		return errors.Wrap(err, "request")
	}
	if t.Phase < PhaseCreated || t.Phase > PhaseCompleted {
		return errors.Wrapf(errors.ErrState, "phase %v", t.Phase)
	}
	return nil
}

// Copy makes a new trade with the same terms
func (t *Trade) Copy() orm.CloneableData {
	return &Trade{
		Metadata:           t.Metadata.Copy(),
		Address:            t.Address.Clone(),
		Authority:          t.Authority.Clone(),
		Source:             t.Source.Clone(),
		Destination:        t.Destination.Clone(),
		CounterDestination: t.CounterDestination.Clone(),
		Offer:              t.Offer.Clone(),
		Request:            t.Request.Clone(),
		Phase:              t.Phase,
	}
}

// TradeID returns the deterministic key of a trade between the given
// parties. All addresses are fixed length so plain concatenation cannot
// be ambiguous. The same three accounts always map to the same key,
// which is what makes duplicate trades detectable on creation.
func TradeID(authority, destination, counterDestination weave.Address) []byte {
	h := sha256.New()
	h.Write(authority)
	h.Write(destination)
	h.Write(counterDestination)
	return h.Sum(nil)
}

// Condition returns the custody condition of a trade. Its address holds
// the deposit. No signer controls it, only the handlers in this package
// move coins out of it.
func Condition(tradeID []byte) weave.Condition {
	return weave.NewCondition("trade", "escrow", tradeID)
}

func NewBucket() orm.ModelBucket {
	b := orm.NewModelBucket("trd", &Trade{},
		orm.WithIndex("authority", idxAuthority, false),
		orm.WithIndex("destination", idxDestination, false),
	)
	return migration.NewModelBucket("trade", b)
}

func toTrade(obj orm.Object) (*Trade, error) {
	if obj == nil {
		return nil, errors.Wrap(errors.ErrHuman, "Cannot take index of nil")
	}
	t, ok := obj.Value().(*Trade)
	if !ok {
		return nil, errors.Wrap(errors.ErrHuman, "Can only take index of Trade")
	}
	return t, nil
}

func idxAuthority(obj orm.Object) ([]byte, error) {
	t, err := toTrade(obj)
	if err != nil {
		return nil, err
	}
	return t.Authority, nil
}

func idxDestination(obj orm.Object) ([]byte, error) {
	t, err := toTrade(obj)
	if err != nil {
		return nil, err
	}
	return t.Destination, nil
}
