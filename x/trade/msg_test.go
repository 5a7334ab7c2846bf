package trade_test

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"

	"github.com/iov-one/otc/x/trade"
)

func TestCreateMsg(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	validOffer := coin.NewCoin(5, 0, "BTC")
	validRequest := coin.NewCoin(7, 0, "ETH")
	invalidCoin := coin.NewCoin(1, 1, "12345789")

	specs := map[string]struct {
		Mutator func(msg *trade.CreateMsg)
		Exp     *errors.Error
	}{
		"Happy path": {},
		"Invalid metadata": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.Metadata.Schema = 0
			},
			Exp: errors.ErrMetadata,
		},
		"Missing source": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.Source = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing destination": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.Destination = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing counter destination": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.CounterDestination = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing offer": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.Offer = nil
			},
			Exp: errors.ErrAmount,
		},
		"Zero offer": {
			Mutator: func(msg *trade.CreateMsg) {
				zero := coin.NewCoin(0, 0, "BTC")
				msg.Offer = &zero
			},
			Exp: errors.ErrAmount,
		},
		"Negative request": {
			Mutator: func(msg *trade.CreateMsg) {
				neg := coin.NewCoin(-1, 0, "ETH")
				msg.Request = &neg
			},
			Exp: errors.ErrAmount,
		},
		"Invalid offer ticker": {
			Mutator: func(msg *trade.CreateMsg) {
				msg.Offer = &invalidCoin
			},
			Exp: errors.ErrCurrency,
		},
	}
	for msg, spec := range specs {
		baseMsg := trade.CreateMsg{
			Metadata:           &weave.Metadata{Schema: 1},
			Source:             alice.Address(),
			Destination:        bob.Address(),
			CounterDestination: carl.Address(),
			Offer:              &validOffer,
			Request:            &validRequest,
		}

		t.Run(msg, func(t *testing.T) {
			if spec.Mutator != nil {
				spec.Mutator(&baseMsg)
			}
			err := baseMsg.Validate()
			if !spec.Exp.Is(err) {
				t.Fatalf("check expected: %v  but got %+v", spec.Exp, err)
			}
		})
	}
}

func TestStartMsg(t *testing.T) {
	validOffer := coin.NewCoin(5, 0, "BTC")

	specs := map[string]struct {
		Mutator func(msg *trade.StartMsg)
		Exp     *errors.Error
	}{
		"Happy path": {},
		"Invalid metadata": {
			Mutator: func(msg *trade.StartMsg) {
				msg.Metadata.Schema = 0
			},
			Exp: errors.ErrMetadata,
		},
		"Invalid trade id": {
			Mutator: func(msg *trade.StartMsg) {
				msg.TradeId = make([]byte, 31)
			},
			Exp: errors.ErrInput,
		},
		"Missing offer": {
			Mutator: func(msg *trade.StartMsg) {
				msg.Offer = nil
			},
			Exp: errors.ErrAmount,
		},
	}
	for msg, spec := range specs {
		baseMsg := trade.StartMsg{
			Metadata: &weave.Metadata{Schema: 1},
			TradeId:  make([]byte, 32),
			Offer:    &validOffer,
		}

		t.Run(msg, func(t *testing.T) {
			if spec.Mutator != nil {
				spec.Mutator(&baseMsg)
			}
			err := baseMsg.Validate()
			if !spec.Exp.Is(err) {
				t.Fatalf("check expected: %v  but got %+v", spec.Exp, err)
			}
		})
	}
}

func TestCancelMsg(t *testing.T) {
	specs := map[string]struct {
		Mutator func(msg *trade.CancelMsg)
		Exp     *errors.Error
	}{
		"Happy path": {},
		"Invalid metadata": {
			Mutator: func(msg *trade.CancelMsg) {
				msg.Metadata.Schema = 0
			},
			Exp: errors.ErrMetadata,
		},
		"Invalid trade id": {
			Mutator: func(msg *trade.CancelMsg) {
				msg.TradeId = nil
			},
			Exp: errors.ErrInput,
		},
	}
	for msg, spec := range specs {
		baseMsg := trade.CancelMsg{
			Metadata: &weave.Metadata{Schema: 1},
			TradeId:  make([]byte, 32),
		}

		t.Run(msg, func(t *testing.T) {
			if spec.Mutator != nil {
				spec.Mutator(&baseMsg)
			}
			err := baseMsg.Validate()
			if !spec.Exp.Is(err) {
				t.Fatalf("check expected: %v  but got %+v", spec.Exp, err)
			}
		})
	}
}

func TestAcceptMsg(t *testing.T) {
	bob := weavetest.NewCondition()
	carl := weavetest.NewCondition()
	validRequest := coin.NewCoin(7, 0, "ETH")

	specs := map[string]struct {
		Mutator func(msg *trade.AcceptMsg)
		Exp     *errors.Error
	}{
		"Happy path": {},
		"Invalid metadata": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.Metadata.Schema = 0
			},
			Exp: errors.ErrMetadata,
		},
		"Invalid trade id": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.TradeId = make([]byte, 20)
			},
			Exp: errors.ErrInput,
		},
		"Missing source": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.Source = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing destination": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.Destination = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing counter destination": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.CounterDestination = nil
			},
			Exp: errors.ErrEmpty,
		},
		"Missing request": {
			Mutator: func(msg *trade.AcceptMsg) {
				msg.Request = nil
			},
			Exp: errors.ErrAmount,
		},
	}
	for msg, spec := range specs {
		baseMsg := trade.AcceptMsg{
			Metadata:           &weave.Metadata{Schema: 1},
			TradeId:            make([]byte, 32),
			Source:             bob.Address(),
			Destination:        bob.Address(),
			CounterDestination: carl.Address(),
			Request:            &validRequest,
		}

		t.Run(msg, func(t *testing.T) {
			if spec.Mutator != nil {
				spec.Mutator(&baseMsg)
			}
			err := baseMsg.Validate()
			if !spec.Exp.Is(err) {
				t.Fatalf("check expected: %v  but got %+v", spec.Exp, err)
			}
		})
	}
}
