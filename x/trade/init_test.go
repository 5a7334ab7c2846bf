package trade

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenesisKey(t *testing.T) {
	const genesis = `
{
  "trade": [
    {
      "authority": "0000000000000000000000000000000000000001",
      "source": "0000000000000000000000000000000000000001",
      "destination": "C30A2424104F542576EF01FECA2FF558F5EAA61A",
      "counter_destination": "0000000000000000000000000000000000000002",
      "offer": {
        "ticker": "BTC",
        "whole": 5
      },
      "request": {
        "ticker": "ETH",
        "whole": 7
      }
    }
  ]}`

	var opts weave.Options
	assert.Nil(t, json.Unmarshal([]byte(genesis), &opts))

	db := store.MemStore()
	migration.MustInitPkg(db, "trade")

	var ini Initializer
	assert.Nil(t, ini.FromGenesis(opts, weave.GenesisParams{}, db))

	authority, err := hex.DecodeString("0000000000000000000000000000000000000001")
	assert.Nil(t, err)
	destination, err := hex.DecodeString("c30a2424104f542576ef01feca2ff558f5eaa61a")
	assert.Nil(t, err)
	counterDestination, err := hex.DecodeString("0000000000000000000000000000000000000002")
	assert.Nil(t, err)

	bucket := NewBucket()
	tradeID := TradeID(authority, destination, counterDestination)

	var tr Trade
	assert.Nil(t, bucket.One(db, tradeID, &tr))

	assert.Equal(t, PhaseCreated, tr.Phase)
	assert.Equal(t, "0000000000000000000000000000000000000001", hex.EncodeToString(tr.Authority))
	assert.Equal(t, "c30a2424104f542576ef01feca2ff558f5eaa61a", hex.EncodeToString(tr.Destination))
	assert.Equal(t, "0000000000000000000000000000000000000002", hex.EncodeToString(tr.CounterDestination))
	assert.Equal(t, true, tr.Address.Equals(Condition(tradeID).Address()))
	assert.Equal(t, "BTC", tr.Offer.Ticker)
	assert.Equal(t, int64(5), tr.Offer.Whole)
	assert.Equal(t, "ETH", tr.Request.Ticker)
	assert.Equal(t, int64(7), tr.Request.Whole)
}
