package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// AmmValuator values an LP amount in underlying-asset units through the swap
// contract's view. The pricing algorithm itself stays inside the AMM.
type AmmValuator struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewAmmValuator(address common.Address, backend bind.ContractBackend) (*AmmValuator, error) {
	parsed, err := abi.JSON(strings.NewReader(ammSwapABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse amm swap abi")
	}
	return &AmmValuator{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (a *AmmValuator) CalculateTotalAmountForLP(ctx context.Context, lpAmount *big.Int) (*big.Int, error) {
	var out []any
	if err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "calculateTotalAmountForLpToken", lpAmount); err != nil {
		return nil, errors.Wrapf(ErrTransport, "calculateTotalAmountForLpToken: %v", err)
	}
	return unpackBig(out)
}
