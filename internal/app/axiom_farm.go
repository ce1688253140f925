// Package app assembles the daemon: chain bindings, price feed, position
// reader, yield calculator, transaction tracker, orchestrator and the HTTP
// API, all wired from one repo config.
package app

import (
	"context"
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/api/server"
	"github.com/axiomesh/axiom-farm/internal/chain"
	"github.com/axiomesh/axiom-farm/internal/orchestrator"
	"github.com/axiomesh/axiom-farm/internal/position"
	"github.com/axiomesh/axiom-farm/internal/pricefeed"
	"github.com/axiomesh/axiom-farm/internal/tracker"
	"github.com/axiomesh/axiom-farm/internal/yield"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/repo"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

type AxiomFarm struct {
	Ctx    context.Context
	Cancel context.CancelFunc
	Repo   *repo.Repo
	logger logrus.FieldLogger

	Client       *ethclient.Client
	Staking      *chain.StakingRewards
	StakingToken *chain.ERC20
	Valuator     *chain.AmmValuator
	Connector    *chain.NetworkConnector

	PriceFeed    *pricefeed.Feed
	Reader       *position.Reader
	Calculator   *yield.Calculator
	Tracker      *tracker.Tracker
	Orchestrator *orchestrator.Orchestrator
	API          *server.Server

	identity types.Identity
}

func NewAxiomFarm(rep *repo.Repo, ctx context.Context, cancel context.CancelFunc) (*AxiomFarm, error) {
	logger := loggers.Logger(loggers.App)
	cfg := rep.Config

	client, err := ethclient.DialContext(ctx, cfg.Network.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint %s: %w", cfg.Network.RPCEndpoint, err)
	}

	// writes stay disabled without a wallet key; every read path still works
	var opts chain.OptsProvider
	account := common.HexToAddress(cfg.Position.Account)
	if cfg.Wallet.PrivateKey != "" {
		signer, err := chain.NewSigner(cfg.Wallet.PrivateKey, cfg.Network.ChainID)
		if err != nil {
			return nil, fmt.Errorf("build signer: %w", err)
		}
		opts = signer
		account = signer.From()
	}

	stakingAddr := common.HexToAddress(cfg.Contracts.StakingRewards)
	staking, err := chain.NewStakingRewards(stakingAddr, client, opts)
	if err != nil {
		return nil, fmt.Errorf("bind staking rewards: %w", err)
	}

	stakingToken := cfg.Tokens.Staking.ToToken()
	rewardToken := cfg.Tokens.Reward.ToToken()
	erc20, err := chain.NewERC20(stakingToken.Address, client, opts)
	if err != nil {
		return nil, fmt.Errorf("bind staking token: %w", err)
	}

	valuator, err := chain.NewAmmValuator(common.HexToAddress(cfg.Contracts.AmmSwap), client)
	if err != nil {
		return nil, fmt.Errorf("bind amm valuator: %w", err)
	}

	feed, err := pricefeed.New(cfg.PriceFeed)
	if err != nil {
		return nil, fmt.Errorf("build price feed: %w", err)
	}

	reader := position.NewReader(staking, erc20, valuator, feed,
		stakingToken, rewardToken,
		cfg.Position.PollInterval.ToDuration(), cfg.Position.QuoteRefresh.ToDuration())
	calc := yield.NewCalculator(stakingToken, rewardToken)
	trk := tracker.New(client, cfg.Position.PollInterval.ToDuration())

	orch := orchestrator.New(staking, erc20, chain.NewNetworkConnector(client),
		&loggingPrompt{logger: loggers.Logger(loggers.Orchestrator)}, trk,
		cfg.Network.ChainID, stakingToken, stakingAddr, account)

	farm := &AxiomFarm{
		Ctx:          ctx,
		Cancel:       cancel,
		Repo:         rep,
		logger:       logger,
		Client:       client,
		Staking:      staking,
		StakingToken: erc20,
		Valuator:     valuator,
		Connector:    chain.NewNetworkConnector(client),
		PriceFeed:    feed,
		Reader:       reader,
		Calculator:   calc,
		Tracker:      trk,
		Orchestrator: orch,
		identity:     types.Identity{Account: account, Contract: stakingAddr},
	}
	if cfg.API.Enable {
		farm.API = server.New(rep, reader, calc, orch, trk)
	}
	return farm, nil
}

func (farm *AxiomFarm) Start() error {
	ok, err := farm.Connector.CheckConnectedNetworkID(farm.Ctx, farm.Repo.Config.Network.ChainID)
	if err != nil {
		return fmt.Errorf("network check: %w", err)
	}
	if !ok {
		return fmt.Errorf("rpc endpoint does not serve chain %d", farm.Repo.Config.Network.ChainID)
	}

	farm.Reader.Start(farm.Ctx, farm.identity)
	if farm.API != nil {
		if err := farm.API.Start(); err != nil {
			return fmt.Errorf("api server start: %w", err)
		}
	}

	farm.logger.WithFields(logrus.Fields{
		"account":  farm.identity.Account.Hex(),
		"contract": farm.identity.Contract.Hex(),
	}).Info("position tracking started")
	farm.printLogo()
	return nil
}

func (farm *AxiomFarm) Stop() error {
	if farm.API != nil {
		if err := farm.API.Stop(); err != nil {
			return fmt.Errorf("api server stop: %w", err)
		}
	}
	farm.Reader.Stop()
	farm.Client.Close()
	farm.Cancel()

	farm.logger.Infof("%s stopped", repo.AppName)
	return nil
}

func (farm *AxiomFarm) printLogo() {
	fig := figure.NewFigure(repo.AppName, "slant", true)
	farm.logger.Infof(`
=========================================================================================
%s
=========================================================================================
`, fig.String())
}

// loggingPrompt stands in for an interactive confirmation. API calls already
// carry the user's intent, so pending actions are logged and confirmed.
type loggingPrompt struct {
	logger logrus.FieldLogger
}

func (p *loggingPrompt) Show(_ context.Context, conf orchestrator.Confirmation) (bool, error) {
	p.logger.WithFields(logrus.Fields{
		"kind":   conf.Kind,
		"amount": conf.Amount,
	}).Info("action confirmed")
	return true, nil
}
