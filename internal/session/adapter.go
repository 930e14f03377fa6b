package session

import (
	"context"
	"errors"

	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/logging"
	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/storage"
)

// Adapter restores a battle from its store, applies queued selections, and
// then writes a snapshot after every change.
type Adapter struct {
	store    storage.Store
	slots    *SlotQueue
	hydrated bool

	defaultA, defaultB string
}

// NewAdapter returns an adapter over store. Queued selections are read
// from the same store.
func NewAdapter(store storage.Store) *Adapter {
	return &Adapter{store: store, slots: NewSlotQueue(store)}
}

// WithDefaultInputs sets the identifiers a fresh session starts with.
func (a *Adapter) WithDefaultInputs(inputA, inputB string) *Adapter {
	a.defaultA, a.defaultB = inputA, inputB
	return a
}

func (a *Adapter) fresh() *models.BattleSession {
	s := models.NewBattleSession()
	if a.defaultA != "" {
		s.InputA = a.defaultA
	}
	if a.defaultB != "" {
		s.InputB = a.defaultB
	}
	return s
}

// Slots is the adapter's pending-slot queue.
func (a *Adapter) Slots() *SlotQueue { return a.slots }

// Hydrated reports whether persistence has been switched on.
func (a *Adapter) Hydrated() bool { return a.hydrated }

// Restore reads the stored snapshot. A missing or malformed snapshot
// yields a fresh session.
func (a *Adapter) Restore() *models.BattleSession {
	data, err := a.store.Read(SnapshotKey)
	if errors.Is(err, storage.ErrNotExist) {
		return a.fresh()
	}
	if err != nil {
		logging.Warn("could not read saved battle", err, nil)
		return a.fresh()
	}
	s, err := models.DecodeSnapshot(data)
	if err != nil {
		logging.Warn("discarding saved battle", err, nil)
		return a.fresh()
	}
	return s
}

// DrainSlots consumes the queued selections. Failures yield an empty queue.
func (a *Adapter) DrainSlots() models.PendingSlots {
	slots, err := a.slots.Pop()
	if err != nil {
		logging.Warn("could not read queued fighters", err, nil)
	}
	return slots
}

// MarkHydrated enables Persist.
func (a *Adapter) MarkHydrated() { a.hydrated = true }

// Persist writes s as the current snapshot. It does nothing until the
// adapter is hydrated. Errors are logged and dropped.
func (a *Adapter) Persist(s *models.BattleSession) {
	if !a.hydrated || s == nil {
		return
	}
	data, err := models.EncodeSnapshot(s)
	if err != nil {
		logging.Warn("could not encode battle", err, nil)
		return
	}
	if err := a.store.Write(SnapshotKey, data); err != nil {
		logging.Warn("could not save battle", err, nil)
	}
}

// Observer returns Persist as a battle observer.
func (a *Adapter) Observer() engine.Observer { return a.Persist }

// Forget removes the stored snapshot.
func (a *Adapter) Forget() error { return a.store.Clear(SnapshotKey) }

// Start restores into b, loads each queued side over whatever was
// restored, resolves both damage maps, and switches persistence on. Load
// failures are returned per side and never stop start-up.
func (a *Adapter) Start(ctx context.Context, b *engine.Battle) map[models.Side]error {
	b.Restore(a.Restore())

	failed := make(map[models.Side]error)
	queued := a.DrainSlots()
	for _, side := range []models.Side{models.SideA, models.SideB} {
		ident := queued.Get(side)
		if ident == "" {
			continue
		}
		if err := b.LoadFighter(ctx, side, ident); err != nil {
			logging.Warn("could not load queued fighter", err, logging.Fields{"side": string(side), "ident": ident})
			failed[side] = err
		}
	}
	b.RefreshDamageMaps(ctx)

	a.MarkHydrated()
	a.Persist(b.Session())
	return failed
}
