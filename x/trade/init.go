package trade

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

var _ weave.Initializer = (*Initializer)(nil)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

// FromGenesis will parse initial trade info from genesis and save it in the
// database. Genesis trades are stored in created phase, so no coins need to
// be minted for them.
func (*Initializer) FromGenesis(opts weave.Options, params weave.GenesisParams, db weave.KVStore) error {
	var trades []struct {
		Authority          weave.Address `json:"authority"`
		Source             weave.Address `json:"source"`
		Destination        weave.Address `json:"destination"`
		CounterDestination weave.Address `json:"counter_destination"`
		Offer              *coin.Coin    `json:"offer"`
		Request            *coin.Coin    `json:"request"`
	}

	if err := opts.ReadOptions("trade", &trades); err != nil {
		return err
	}

	bucket := NewBucket()
	for i, t := range trades {
		tradeID := TradeID(t.Authority, t.Destination, t.CounterDestination)
		trade := Trade{
			Metadata:           &weave.Metadata{Schema: 1},
			Address:            Condition(tradeID).Address(),
			Authority:          t.Authority,
			Source:             t.Source,
			Destination:        t.Destination,
			CounterDestination: t.CounterDestination,
			Offer:              t.Offer,
			Request:            t.Request,
			Phase:              PhaseCreated,
		}
		if err := trade.Validate(); err != nil {
			return errors.Wrapf(err, "invalid trade at position %d", i)
		}
		switch err := bucket.Has(db, tradeID); {
		case err == nil:
			return errors.Wrapf(errors.ErrDuplicate, "trade at position %d", i)
		case errors.ErrNotFound.Is(err):
			// All good, the key is free.
		default:
			return errors.Wrap(err, "bucket")
		}
		if _, err := bucket.Put(db, tradeID, &trade); err != nil {
			return errors.Wrapf(err, "cannot store trade at position %d", i)
		}
	}
	return nil
}
