package trade

import (
	"github.com/iov-one/weave/errors"
)

// Error codes
// x/trade reserves 150 ~ 159.

var (
	ErrPhase           = errors.Register(150, "operation not allowed in current trade phase")
	ErrAmountMismatch  = errors.Register(151, "coin does not match the recorded terms")
	ErrAccountMismatch = errors.Register(152, "account does not match the recorded terms")
)
