package trade_test

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"

	"github.com/iov-one/otc/x/trade"
)

func TestTradeValidate(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	offer := coin.NewCoin(5, 0, "BTC")
	request := coin.NewCoin(7, 0, "ETH")

	tradeID := trade.TradeID(alice.Address(), bob.Address(), carl.Address())

	specs := map[string]struct {
		Mutator func(tr *trade.Trade)
		Exp     *errors.Error
	}{
		"Happy path": {},
		"Invalid metadata": {
			Mutator: func(tr *trade.Trade) {
				tr.Metadata.Schema = 0
			},
			Exp: errors.ErrMetadata,
		},
		"Missing address": {
			Mutator: func(tr *trade.Trade) {
				tr.Address = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing authority": {
			Mutator: func(tr *trade.Trade) {
				tr.Authority = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing offer": {
			Mutator: func(tr *trade.Trade) {
				tr.Offer = nil
			},
			Exp: errors.ErrAmount,
		},
		"Missing request": {
			Mutator: func(tr *trade.Trade) {
				tr.Request = nil
			},
			Exp: errors.ErrAmount,
		},
		"Invalid phase": {
			Mutator: func(tr *trade.Trade) {
				tr.Phase = trade.PhaseInvalid
			},
			Exp: errors.ErrState,
		},
		"Phase out of range": {
			Mutator: func(tr *trade.Trade) {
				tr.Phase = trade.Phase(42)
			},
			Exp: errors.ErrState,
		},
	}
	for msg, spec := range specs {
		base := trade.Trade{
			Metadata:           &weave.Metadata{Schema: 1},
			Address:            trade.Condition(tradeID).Address(),
			Authority:          alice.Address(),
			Source:             alice.Address(),
			Destination:        bob.Address(),
			CounterDestination: carl.Address(),
			Offer:              &offer,
			Request:            &request,
			Phase:              trade.PhaseCreated,
		}

		t.Run(msg, func(t *testing.T) {
			if spec.Mutator != nil {
				spec.Mutator(&base)
			}
			err := base.Validate()
			if !spec.Exp.Is(err) {
				t.Fatalf("check expected: %v  but got %+v", spec.Exp, err)
			}
		})
	}
}

func TestTradeID(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carl := weavetest.NewCondition().Address()

	id := trade.TradeID(alice, bob, carl)
	assert.Equal(t, 32, len(id))

	// the key is deterministic
	again := trade.TradeID(alice, bob, carl)
	assert.Equal(t, true, bytes.Equal(id, again))

	// any party change yields another key
	other := trade.TradeID(alice, carl, bob)
	assert.Equal(t, false, bytes.Equal(id, other))
}

func TestTradeCondition(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	carl := weavetest.NewCondition().Address()

	id := trade.TradeID(alice, bob, carl)
	addr := trade.Condition(id).Address()
	assert.Nil(t, addr.Validate())

	// the custody account belongs to the trade, not to any party
	assert.Equal(t, false, addr.Equals(alice))
	assert.Equal(t, false, addr.Equals(bob))
	assert.Equal(t, false, addr.Equals(carl))
}
