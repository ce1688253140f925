package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Signer turns the configured wallet key into transact options for write
// calls. Wallet custody beyond this single key is out of scope.
type Signer struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
	from    common.Address
}

func NewSigner(hexKey string, chainID uint64) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse wallet key")
	}
	return &Signer{
		key:     key,
		chainID: new(big.Int).SetUint64(chainID),
		from:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "build transact opts")
	}
	opts.Context = ctx
	return opts, nil
}

func (s *Signer) From() common.Address {
	return s.from
}
