package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vehicle-bot/internal/domain"
	"vehicle-bot/internal/state"
)

type VehicleLookup interface {
	Lookup(ctx context.Context, identifier string) (domain.NormalizedRecord, error)
}

type StateStore interface {
	Get(ctx context.Context, key domain.ParticipantKey) (domain.ConversationState, bool, error)
	Set(ctx context.Context, key domain.ParticipantKey, st domain.ConversationState) error
	Clear(ctx context.Context, key domain.ParticipantKey) error
	// Claim atomically consumes a pending prompt; false means nothing was
	// pending or another handler already took it.
	Claim(ctx context.Context, key domain.ParticipantKey) (bool, error)
}

type TurnRecorder interface {
	RecordTurn(ctx context.Context, turn domain.Turn) error
}

// Reply is the text to send back and the participant's state after the turn.
type Reply struct {
	Text  string
	State domain.ConversationState
}

// Router runs the per-participant dialogue: a pending identifier prompt takes
// precedence over command keywords. Within a process, messages of one
// participant are handled one at a time; across processes sharing a store,
// Claim guarantees a pending prompt is answered at most once.
type Router struct {
	lookup   VehicleLookup
	states   StateStore
	turns    TurnRecorder
	locks    *state.Locker
	commands []Command
	now      func() time.Time
}

func NewRouter(lookup VehicleLookup, states StateStore, turns TurnRecorder) (*Router, error) {
	if lookup == nil {
		return nil, errors.New("usecase: vehicle lookup must not be nil")
	}
	if states == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if turns == nil {
		return nil, errors.New("usecase: turn recorder must not be nil")
	}
	return &Router{
		lookup:   lookup,
		states:   states,
		turns:    turns,
		locks:    state.NewLocker(),
		commands: defaultCommands(),
		now:      time.Now,
	}, nil
}

func (r *Router) Handle(ctx context.Context, in domain.InboundMessage) (Reply, error) {
	key := in.Key()
	if key.ConversationID == "" {
		return Reply{}, newError(ErrorInvalidInput, "missing_conversation_id", nil)
	}

	unlock := r.locks.Lock(key.String())
	defer unlock()

	st, _, err := r.states.Get(ctx, key)
	if err != nil {
		return Reply{}, newError(ErrorInternal, "state_read_error", err)
	}
	if st.AwaitingIdentifier {
		claimed, err := r.states.Claim(ctx, key)
		switch {
		case err != nil:
			slog.Error("failed to claim pending prompt", "participant", key.String(), "err", err)
			return r.answerLookup(ctx, key, in.Text, true), nil
		case claimed:
			return r.answerLookup(ctx, key, in.Text, false), nil
		}
		slog.Info("pending prompt already answered elsewhere", "participant", key.String())
	}
	return r.runCommand(ctx, key, in.Text)
}

func (r *Router) runCommand(ctx context.Context, key domain.ParticipantKey, text string) (Reply, error) {
	cmd, ok := matchCommand(r.commands, text)
	if !ok {
		return Reply{Text: replyFallback}, nil
	}
	if !cmd.AwaitIdentifier {
		return Reply{Text: cmd.Reply}, nil
	}

	awaiting := domain.ConversationState{AwaitingIdentifier: true}
	if err := r.states.Set(ctx, key, awaiting); err != nil {
		return Reply{}, newError(ErrorInternal, "state_write_error", err)
	}
	slog.Info("awaiting vehicle identifier", "participant", key.String())
	return Reply{Text: cmd.Reply, State: awaiting}, nil
}

// answerLookup treats text as the identifier. The prompt has normally been
// claimed already; when claiming failed, the state is cleared afterwards
// whatever happens below, including a panic while formatting or logging.
func (r *Router) answerLookup(ctx context.Context, key domain.ParticipantKey, text string, reset bool) Reply {
	if reset {
		defer r.resetState(ctx, key)
	}

	identifier := strings.TrimSpace(text)
	turn := domain.Turn{
		ID:             newUUID(),
		Timestamp:      r.now().UTC(),
		ParticipantKey: key.String(),
		Input:          identifier,
	}

	rec, err := r.lookup.Lookup(ctx, identifier)
	if err != nil {
		turn.Error = err.Error()
		slog.Warn("vehicle lookup failed", "participant", key.String(), "identifier", identifier, "err", err)
		r.recordTurn(ctx, turn)
		return Reply{Text: replyNoData}
	}

	reply := Reply{Text: FormatVehicle(rec.Vehicle)}
	turn.Result = rec.Document
	slog.Info("vehicle lookup succeeded", "participant", key.String(), "identifier", identifier)
	r.recordTurn(ctx, turn)
	return reply
}

func (r *Router) resetState(ctx context.Context, key domain.ParticipantKey) {
	if err := r.states.Clear(context.WithoutCancel(ctx), key); err != nil {
		slog.Error("failed to reset conversation state", "participant", key.String(), "err", err)
	}
}

// recordTurn writes the turn log entry. A failing sink never changes the
// reply.
func (r *Router) recordTurn(ctx context.Context, turn domain.Turn) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("turn recorder panicked", "participant", turn.ParticipantKey, "panic", fmt.Sprint(p))
		}
	}()
	if err := r.turns.RecordTurn(context.WithoutCancel(ctx), turn); err != nil {
		slog.Error("failed to record turn", "participant", turn.ParticipantKey, "err", err)
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
