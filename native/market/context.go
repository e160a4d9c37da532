package market

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"shopchain/core/events"
	"shopchain/core/state"
	"shopchain/core/types"
)

// Random supplies the deterministic randomness every replaying node shares
// for a given block. Draws are consumed in program order, so two replays of
// the same action observe the same sequence.
type Random struct {
	src *rand.Rand
}

// NewRandom seeds a deterministic source. Seeds come from consensus (block
// hash material), never from the wall clock.
func NewRandom(seed int64) *Random {
	return &Random{src: rand.New(rand.NewSource(seed))}
}

// UUID draws a deterministic UUID from the source.
func (r *Random) UUID() uuid.UUID {
	id, err := uuid.NewRandomFromReader(r.src)
	if err != nil {
		// rand.Rand's Read never fails.
		panic(fmt.Sprintf("market: deterministic uuid: %v", err))
	}
	return id
}

// ActionContext carries the execution environment of one action: the state
// snapshot the action starts from, the block it executes in, and who signed
// it. Emitter defaults to a no-op when left nil.
type ActionContext struct {
	PriorState *state.Store
	BlockIndex int64
	Signer     types.Address
	Rehearsal  bool
	Random     *Random
	Emitter    events.Emitter
}

func (ctx *ActionContext) emitter() events.Emitter {
	if ctx.Emitter == nil {
		return events.NoopEmitter{}
	}
	return ctx.Emitter
}

// RehearsalReport lists every address an action may write during real
// execution. It is computed from the action's parameters and the context
// alone, never from store contents, and must be a superset of the real
// write set.
type RehearsalReport struct {
	States   []types.Address
	Balances []types.Address
}

// Action is one deterministic marketplace state transition.
type Action interface {
	// Execute applies the action to ctx.PriorState and returns the
	// resulting snapshot. The prior snapshot is never mutated. When
	// ctx.Rehearsal is set, Execute returns the prior state unchanged.
	Execute(ctx *ActionContext) (*state.Store, error)

	// Rehearse reports the write set the action may touch.
	Rehearse(ctx *ActionContext) RehearsalReport
}
