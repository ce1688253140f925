// Package chain binds the external contracts this system consumes: the
// staking rewards program, the staked LP token and the AMM that values it.
// All state lives on-chain; nothing here caches or mutates shared handles.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrTransport marks an RPC/network failure. Readers keep their last
	// value when they see it; it is never fatal on the read path.
	ErrTransport = errors.New("chain: transport error")

	ErrNoSigner  = errors.New("chain: no signer configured")
	ErrBadResult = errors.New("chain: unexpected call result shape")
)

// OptsProvider supplies signed transact options for write calls.
type OptsProvider interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
	From() common.Address
}

func unpackBig(out []any) (*big.Int, error) {
	if len(out) == 0 {
		return nil, ErrBadResult
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, ErrBadResult
	}
	return v, nil
}
