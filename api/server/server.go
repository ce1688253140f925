// Package server exposes the position view and the staking actions over
// HTTP. The API is the only outer surface of the daemon; everything it
// returns is recomputed from the live snapshot on each request.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/internal/gate"
	"github.com/axiomesh/axiom-farm/internal/orchestrator"
	"github.com/axiomesh/axiom-farm/internal/yield"
	"github.com/axiomesh/axiom-farm/pkg/fixedpoint"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/repo"
	"github.com/axiomesh/axiom-farm/pkg/types"
)

// PositionSource is the read side of the position reader.
type PositionSource interface {
	Snapshot() types.StakingSnapshot
	Quotes() types.Quotes
	Identity() types.Identity
}

// ActionRunner is the write side, backed by the orchestrator.
type ActionRunner interface {
	SetInputAmount(v *big.Int)
	InputAmount() maybe.Value[*big.Int]
	Approve(ctx context.Context) error
	Stake(ctx context.Context) error
	Withdraw(ctx context.Context, percentage uint8, stakeBalance maybe.Value[*big.Int]) error
	Claim(ctx context.Context) error
	State(kind orchestrator.Kind) string
}

type ActionLister interface {
	List() []*types.TxRecord
}

type Server struct {
	rep      *repo.Repo
	position PositionSource
	calc     *yield.Calculator
	actions  ActionRunner
	lister   ActionLister

	handler http.Handler
	srv     *http.Server
	logger  logrus.FieldLogger
}

func New(rep *repo.Repo, position PositionSource, calc *yield.Calculator,
	actions ActionRunner, lister ActionLister) *Server {
	s := &Server{
		rep:      rep,
		position: position,
		calc:     calc,
		actions:  actions,
		lister:   lister,
		logger:   loggers.Logger(loggers.API),
	}

	router := mux.NewRouter()
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/position", s.handlePosition).Methods(http.MethodGet)
	v1.HandleFunc("/actions", s.handleListActions).Methods(http.MethodGet)
	v1.HandleFunc("/actions/approve", s.handleApprove).Methods(http.MethodPost)
	v1.HandleFunc("/actions/stake", s.handleStake).Methods(http.MethodPost)
	v1.HandleFunc("/actions/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/actions/claim", s.handleClaim).Methods(http.MethodPost)
	v1.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: rep.Config.API.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(router)
	return s
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.rep.Config.API.Port),
		Handler: s.handler,
	}
	go func() {
		s.logger.WithField("port", s.rep.Config.API.Port).Info("api server started")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("api server exited")
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	snap := s.position.Snapshot()
	quotes := s.position.Quotes()
	derived := s.calc.Derive(time.Now(), snap, quotes)
	input := s.actions.InputAmount()

	writeJSON(w, http.StatusOK, positionResponse{
		Identity: identityView(s.position.Identity()),
		Snapshot: snapshotView(snap),
		Quotes:   quotesView(quotes),
		Derived:  derivedView(derived),
		Gate: gateView{
			NeedsApproval: viewBool(gate.NeedsApproval(snap.Allowance, input)),
			StakeEnabled:  gate.StakeEnabled(input, snap.TokenBalance, snap.Allowance),
			Warning:       gate.Warning(input, snap.TokenBalance),
		},
	})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	records := s.lister.List()
	out := make([]actionView, 0, len(records))
	for _, rec := range records {
		out = append(out, newActionView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type amountRequest struct {
	// Amount in human token units, e.g. "1.5"
	Amount string `json:"amount"`
}

type withdrawRequest struct {
	Percentage uint8 `json:"percentage"`
}

// handleApprove and handleStake both set the input amount first; the gate
// semantics key off the same transient input the orchestrator submits.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if !s.setInputFromBody(w, r) {
		return
	}
	s.runAction(w, r, "approve", s.actions.Approve)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	if !s.setInputFromBody(w, r) {
		return
	}
	s.runAction(w, r, "stake", s.actions.Stake)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return
	}
	stake := s.position.Snapshot().StakeBalance
	s.runAction(w, r, "withdraw", func(ctx context.Context) error {
		return s.actions.Withdraw(ctx, req.Percentage, stake)
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, "claim", s.actions.Claim)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) setInputFromBody(w http.ResponseWriter, r *http.Request) bool {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode request"))
		return false
	}
	amount, err := fixedpoint.FromDecimalString(req.Amount, s.rep.Config.Tokens.Staking.Decimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "parse amount"))
		return false
	}
	s.actions.SetInputAmount(amount)
	return true
}

// runAction executes synchronously: the response arrives once the action
// reaches a terminal state. Clients that do not want to hold the connection
// can watch /api/v1/actions instead.
func (s *Server) runAction(w http.ResponseWriter, r *http.Request, kind string, run func(context.Context) error) {
	if err := run(r.Context()); err != nil {
		s.logger.WithError(err).Warnf("%s failed", kind)
		writeError(w, actionStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": kind, "result": "ok"})
}

func actionStatusCode(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrActionInFlight):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrInvalidPercentage),
		errors.Is(err, orchestrator.ErrNoInputAmount),
		errors.Is(err, orchestrator.ErrUnknownStake):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrWrongNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, orchestrator.ErrReverted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
