package events

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/axiomesh/axiom-farm/pkg/types"
)

// SnapshotEvent is published on every applied field update of the position
// reader. Snapshot is a copy taken at publish time.
type SnapshotEvent struct {
	Identity types.Identity
	Field    string
	Snapshot types.StakingSnapshot
}

// ActionEvent is published by the orchestrator when an action is submitted
// and when it reaches a terminal state.
type ActionEvent struct {
	Kind   string
	Hash   common.Hash
	Status types.TxStatus
}
