// Package gate evaluates the readiness predicates for staking actions from
// the current input amount and snapshot. Everything is pure and recomputed
// per call; state lives with the reader and the orchestrator.
package gate

import (
	"math/big"

	"github.com/axiomesh/axiom-farm/pkg/maybe"
)

const WarnInsufficientBalance = "Insufficient balance"

// NeedsApproval is unknown until both the allowance and the input amount are.
func NeedsApproval(allowance, input maybe.Value[*big.Int]) maybe.Value[bool] {
	a, ok := allowance.Get()
	if !ok {
		return maybe.Unknown[bool]()
	}
	in, ok := input.Get()
	if !ok {
		return maybe.Unknown[bool]()
	}
	return maybe.Known(a.Cmp(in) < 0)
}

// StakeEnabled requires a known input within a known balance and no pending
// approval. Anything unknown disables staking; the gate never assumes.
func StakeEnabled(input, balance, allowance maybe.Value[*big.Int]) bool {
	in, ok := input.Get()
	if !ok {
		return false
	}
	bal, ok := balance.Get()
	if !ok {
		return false
	}
	needs, ok := NeedsApproval(allowance, input).Get()
	if !ok || needs {
		return false
	}
	return in.Cmp(bal) <= 0
}

// Warning returns the user-facing warning for the current input, empty when
// there is none or the inputs are not known yet.
func Warning(input, balance maybe.Value[*big.Int]) string {
	in, ok := input.Get()
	if !ok {
		return ""
	}
	bal, ok := balance.Get()
	if !ok {
		return ""
	}
	if in.Cmp(bal) > 0 {
		return WarnInsufficientBalance
	}
	return ""
}
