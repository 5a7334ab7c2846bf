/*

Package trade implements a two-party conditional asset exchange.

One party (the authority) records the terms of a trade: an exact coin it
offers and an exact coin it requests, together with the accounts of both
parties. The authority then deposits the offered coin into a custodial
account derived from the trade identity. The counterparty completes the
trade by paying the requested coin, which releases the deposit. Until
that happens the authority can cancel and take the deposit back.

A trade advances through phases:

	created ---> started ---> completed
	                 \
	                  +-----> cancelled

Both settlement legs of a completed trade are executed within a single
delivery, so either both transfers happen or neither does. Cancelled and
completed are terminal, a settled trade can never be settled again.

Trades carry no timeout. A started trade pends until the authority
cancels or the counterparty accepts.

*/
package trade
