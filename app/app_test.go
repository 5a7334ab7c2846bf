package app

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"

	"github.com/iov-one/otc/x/trade"
)

// newTestApp returns a fresh application backed by a memory store.
func newTestApp(t *testing.T) app.BaseApp {
	abciApp, err := GenerateApp(&server.Options{
		MinFee: coin.Coin{},
		Home:   "",
		Logger: log.NewNopLogger(),
		Debug:  false,
	})
	require.NoError(t, err)
	return abciApp.(app.BaseApp)
}

// testInitChain sets up genesis wallets for both trade parties
func testInitChain(t *testing.T, myApp app.BaseApp, chainID, alice, bob string) {
	appState := fmt.Sprintf(`{
		"cash": [
			{
				"address": "%s",
				"coins": [{"whole": 5, "ticker": "BTC"}]
			},
			{
				"address": "%s",
				"coins": [{"whole": 7, "ticker": "ETH"}]
			}
		],
		"conf": {
			"cash": {
				"collector_address": "3b11c732b8fc1f09beb34031302fe2ab347c5c14",
				"minimal_fee": {}
			},
			"migration": {
				"admin": "%s"
			}
		},
		"initialize_schema": [
			{"pkg": "cash", "ver": 1},
			{"pkg": "sigs", "ver": 1},
			{"pkg": "utils", "ver": 1},
			{"pkg": "trade", "ver": 1}
		]
	}`, alice, bob, alice)
	myApp.InitChain(abci.RequestInitChain{
		AppStateBytes: []byte(appState),
		ChainId:       chainID,
	})
}

// testCommit will commit at height h and return new hash
func testCommit(t *testing.T, myApp app.BaseApp, h int64, chainID string) []byte {
	header := abci.Header{Height: h, ChainID: chainID, Time: time.Now()}
	myApp.BeginBlock(abci.RequestBeginBlock{Header: header})
	assert.Equal(t, chainID, myApp.GetChainID())
	myApp.EndBlock(abci.RequestEndBlock{})
	cres := myApp.Commit()
	hash := cres.Data
	assert.NotEmpty(t, hash)
	return hash
}

func testQuery(t *testing.T, myApp app.BaseApp, path string, key []byte, obj weave.Persistent) {
	query := abci.RequestQuery{
		Path: path,
		Data: key,
	}
	qres := myApp.Query(query)
	require.Equal(t, uint32(0), qres.Code, "%#v", qres)
	require.NotEmpty(t, qres.Value)
	err := app.UnmarshalOneResult(qres.Value, obj)
	require.NoError(t, err)
}

// signTx wraps the message in a signed transaction
func signTx(t *testing.T, myApp app.BaseApp, sum isTx_Sum, signer *crypto.PrivateKey, seq int64) []byte {
	tx := &Tx{Sum: sum}
	sig, err := sigs.SignTx(signer, tx, myApp.GetChainID(), seq)
	require.NoError(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}
	txBytes, err := tx.Marshal()
	require.NoError(t, err)
	require.NotEmpty(t, txBytes)
	return txBytes
}

// testDeliverTx submits the transaction and requires it to pass
func testDeliverTx(t *testing.T, myApp app.BaseApp, h int64, sum isTx_Sum, signer *crypto.PrivateKey, seq int64) abci.ResponseDeliverTx {
	txBytes := signTx(t, myApp, sum, signer, seq)

	header := abci.Header{Height: h, Time: time.Now()}
	myApp.BeginBlock(abci.RequestBeginBlock{Header: header})
	chres := myApp.CheckTx(txBytes)
	require.Equal(t, uint32(0), chres.Code, chres.Log)
	dres := myApp.DeliverTx(txBytes)
	require.Equal(t, uint32(0), dres.Code, dres.Log)
	return dres
}

// testDeliverTxFails submits the transaction and requires it to be rejected
func testDeliverTxFails(t *testing.T, myApp app.BaseApp, h int64, sum isTx_Sum, signer *crypto.PrivateKey, seq int64) {
	txBytes := signTx(t, myApp, sum, signer, seq)

	header := abci.Header{Height: h, Time: time.Now()}
	myApp.BeginBlock(abci.RequestBeginBlock{Header: header})
	dres := myApp.DeliverTx(txBytes)
	require.NotEqual(t, uint32(0), dres.Code, dres.Log)
}

func queryBalance(t *testing.T, myApp app.BaseApp, addr weave.Address) coin.Coins {
	query := abci.RequestQuery{
		Path: "/wallets",
		Data: addr,
	}
	qres := myApp.Query(query)
	require.Equal(t, uint32(0), qres.Code, "%#v", qres)
	if len(qres.Value) == 0 {
		return nil
	}
	var acct cash.Set
	require.NoError(t, app.UnmarshalOneResult(qres.Value, &acct))
	return acct.Coins
}

func TestTradeLifecycleAccept(t *testing.T) {
	chainID := "test-net-22"
	myApp := newTestApp(t)

	alice := crypto.GenPrivKeyEd25519()
	aliceAddr := alice.PublicKey().Address()
	bob := crypto.GenPrivKeyEd25519()
	bobAddr := bob.PublicKey().Address()
	// alice receives the requested coin on a separate account
	carlAddr := crypto.GenPrivKeyEd25519().PublicKey().Address()

	offer := coin.NewCoin(5, 0, "BTC")
	request := coin.NewCoin(7, 0, "ETH")

	testInitChain(t, myApp, chainID, aliceAddr.String(), bobAddr.String())
	hash1 := testCommit(t, myApp, 1, chainID)

	// alice records the terms
	dres := testDeliverTx(t, myApp, 2, &Tx_CreateTradeMsg{&trade.CreateMsg{
		Metadata:           &weave.Metadata{Schema: 1},
		Source:             aliceAddr,
		Destination:        bobAddr,
		CounterDestination: carlAddr,
		Offer:              &offer,
		Request:            &request,
	}}, alice, 0)
	tradeID := dres.Data
	require.Equal(t, trade.TradeID(aliceAddr, bobAddr, carlAddr), tradeID)
	hash2 := testCommit(t, myApp, 2, chainID)
	assert.NotEqual(t, hash1, hash2)

	// a deposit over different terms fails closed, nothing moves
	wrongOffer := coin.NewCoin(4, 0, "BTC")
	testDeliverTxFails(t, myApp, 3, &Tx_StartTradeMsg{&trade.StartMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
		Offer:    &wrongOffer,
	}}, alice, 1)
	testCommit(t, myApp, 3, chainID)

	var created trade.Trade
	testQuery(t, myApp, "/trades", tradeID, &created)
	assert.Equal(t, trade.PhaseCreated, created.Phase)
	aliceCoins := queryBalance(t, myApp, aliceAddr)
	require.Equal(t, 1, len(aliceCoins))
	assert.Equal(t, int64(5), aliceCoins[0].Whole)

	// alice deposits the offer
	testDeliverTx(t, myApp, 4, &Tx_StartTradeMsg{&trade.StartMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
		Offer:    &offer,
	}}, alice, 2)
	testCommit(t, myApp, 4, chainID)

	tradeAddr := trade.Condition(tradeID).Address()
	custody := queryBalance(t, myApp, tradeAddr)
	require.Equal(t, 1, len(custody))
	assert.Equal(t, int64(5), custody[0].Whole)
	assert.Equal(t, "BTC", custody[0].Ticker)

	var started trade.Trade
	testQuery(t, myApp, "/trades", tradeID, &started)
	assert.Equal(t, trade.PhaseStarted, started.Phase)

	// bob pays the requested coin and takes the deposit
	testDeliverTx(t, myApp, 5, &Tx_AcceptTradeMsg{&trade.AcceptMsg{
		Metadata:           &weave.Metadata{Schema: 1},
		TradeId:            tradeID,
		Source:             bobAddr,
		Destination:        bobAddr,
		CounterDestination: carlAddr,
		Request:            &request,
	}}, bob, 0)
	testCommit(t, myApp, 5, chainID)

	var completed trade.Trade
	testQuery(t, myApp, "/trades", tradeID, &completed)
	assert.Equal(t, trade.PhaseCompleted, completed.Phase)

	// both legs settled
	bobCoins := queryBalance(t, myApp, bobAddr)
	require.Equal(t, 1, len(bobCoins))
	assert.Equal(t, int64(5), bobCoins[0].Whole)
	assert.Equal(t, "BTC", bobCoins[0].Ticker)

	carlCoins := queryBalance(t, myApp, carlAddr)
	require.Equal(t, 1, len(carlCoins))
	assert.Equal(t, int64(7), carlCoins[0].Whole)
	assert.Equal(t, "ETH", carlCoins[0].Ticker)

	assert.Equal(t, 0, len(queryBalance(t, myApp, tradeAddr)))

	// a completed trade cannot be settled again
	testDeliverTxFails(t, myApp, 6, &Tx_AcceptTradeMsg{&trade.AcceptMsg{
		Metadata:           &weave.Metadata{Schema: 1},
		TradeId:            tradeID,
		Source:             bobAddr,
		Destination:        bobAddr,
		CounterDestination: carlAddr,
		Request:            &request,
	}}, bob, 1)
	testCommit(t, myApp, 6, chainID)

	// nor cancelled, the settlement stands
	testDeliverTxFails(t, myApp, 7, &Tx_CancelTradeMsg{&trade.CancelMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
	}}, alice, 3)

	var final trade.Trade
	testQuery(t, myApp, "/trades", tradeID, &final)
	assert.Equal(t, trade.PhaseCompleted, final.Phase)
}

func TestTradeLifecycleCancel(t *testing.T) {
	chainID := "test-net-23"
	myApp := newTestApp(t)

	alice := crypto.GenPrivKeyEd25519()
	aliceAddr := alice.PublicKey().Address()
	bob := crypto.GenPrivKeyEd25519()
	bobAddr := bob.PublicKey().Address()
	carlAddr := crypto.GenPrivKeyEd25519().PublicKey().Address()

	offer := coin.NewCoin(5, 0, "BTC")
	request := coin.NewCoin(7, 0, "ETH")

	testInitChain(t, myApp, chainID, aliceAddr.String(), bobAddr.String())
	testCommit(t, myApp, 1, chainID)

	dres := testDeliverTx(t, myApp, 2, &Tx_CreateTradeMsg{&trade.CreateMsg{
		Metadata:           &weave.Metadata{Schema: 1},
		Source:             aliceAddr,
		Destination:        bobAddr,
		CounterDestination: carlAddr,
		Offer:              &offer,
		Request:            &request,
	}}, alice, 0)
	tradeID := dres.Data
	testCommit(t, myApp, 2, chainID)

	testDeliverTx(t, myApp, 3, &Tx_StartTradeMsg{&trade.StartMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
		Offer:    &offer,
	}}, alice, 1)
	testCommit(t, myApp, 3, chainID)

	// bob cannot cancel somebody else's trade
	testDeliverTxFails(t, myApp, 4, &Tx_CancelTradeMsg{&trade.CancelMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
	}}, bob, 0)
	testCommit(t, myApp, 4, chainID)

	// alice takes the deposit back
	testDeliverTx(t, myApp, 5, &Tx_CancelTradeMsg{&trade.CancelMsg{
		Metadata: &weave.Metadata{Schema: 1},
		TradeId:  tradeID,
	}}, alice, 2)
	testCommit(t, myApp, 5, chainID)

	var cancelled trade.Trade
	testQuery(t, myApp, "/trades", tradeID, &cancelled)
	assert.Equal(t, trade.PhaseCancelled, cancelled.Phase)

	aliceCoins := queryBalance(t, myApp, aliceAddr)
	require.Equal(t, 1, len(aliceCoins))
	assert.Equal(t, int64(5), aliceCoins[0].Whole)
	assert.Equal(t, "BTC", aliceCoins[0].Ticker)
	assert.Equal(t, 0, len(queryBalance(t, myApp, trade.Condition(tradeID).Address())))

	// a cancelled trade cannot be accepted anymore, bob keeps his coins
	testDeliverTxFails(t, myApp, 6, &Tx_AcceptTradeMsg{&trade.AcceptMsg{
		Metadata:           &weave.Metadata{Schema: 1},
		TradeId:            tradeID,
		Source:             bobAddr,
		Destination:        bobAddr,
		CounterDestination: carlAddr,
		Request:            &request,
	}}, bob, 1)
	testCommit(t, myApp, 6, chainID)

	bobCoins := queryBalance(t, myApp, bobAddr)
	require.Equal(t, 1, len(bobCoins))
	assert.Equal(t, int64(7), bobCoins[0].Whole)
	assert.Equal(t, "ETH", bobCoins[0].Ticker)
}

func TestTradeDuplicateCreate(t *testing.T) {
	chainID := "test-net-24"
	myApp := newTestApp(t)

	alice := crypto.GenPrivKeyEd25519()
	aliceAddr := alice.PublicKey().Address()
	bob := crypto.GenPrivKeyEd25519()
	bobAddr := bob.PublicKey().Address()
	carlAddr := crypto.GenPrivKeyEd25519().PublicKey().Address()

	offer := coin.NewCoin(5, 0, "BTC")
	request := coin.NewCoin(7, 0, "ETH")

	testInitChain(t, myApp, chainID, aliceAddr.String(), bobAddr.String())
	testCommit(t, myApp, 1, chainID)

	createMsg := func() *trade.CreateMsg {
		return &trade.CreateMsg{
			Metadata:           &weave.Metadata{Schema: 1},
			Source:             aliceAddr,
			Destination:        bobAddr,
			CounterDestination: carlAddr,
			Offer:              &offer,
			Request:            &request,
		}
	}

	dres := testDeliverTx(t, myApp, 2, &Tx_CreateTradeMsg{createMsg()}, alice, 0)
	require.True(t, bytes.Equal(trade.TradeID(aliceAddr, bobAddr, carlAddr), dres.Data))
	testCommit(t, myApp, 2, chainID)

	// the same parties cannot open a second trade
	testDeliverTxFails(t, myApp, 3, &Tx_CreateTradeMsg{createMsg()}, alice, 1)
}
