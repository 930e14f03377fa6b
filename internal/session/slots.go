// Package session persists a battle to a per-tab store and hands queued
// fighter selections from other screens to the battle on start.
package session

import (
	"errors"
	"fmt"

	"github.com/tatianab/pokebattle/internal/models"
	"github.com/tatianab/pokebattle/internal/storage"
)

// Store keys. The snapshot key carries a schema version.
const (
	SnapshotKey = "battle:v1"
	SlotsKey    = "battle:slots"
)

// SlotQueue is the pending-slot hand-off between the browse and roster
// commands and the battle screen.
type SlotQueue struct {
	store storage.Store
}

func NewSlotQueue(store storage.Store) *SlotQueue {
	return &SlotQueue{store: store}
}

// Set queues ident for side, replacing anything queued there before.
func (q *SlotQueue) Set(side models.Side, ident any) error {
	if !side.Valid() {
		return fmt.Errorf("queue slot: invalid side %q", side)
	}
	slots, err := q.Peek()
	if err != nil {
		return err
	}
	slots.Set(side, fmt.Sprint(ident))
	data, err := models.EncodePendingSlots(slots)
	if err != nil {
		return fmt.Errorf("queue slot: %w", err)
	}
	return q.store.Write(SlotsKey, data)
}

// Peek returns the queued selections without consuming them.
func (q *SlotQueue) Peek() (models.PendingSlots, error) {
	data, err := q.store.Read(SlotsKey)
	if errors.Is(err, storage.ErrNotExist) {
		return models.PendingSlots{}, nil
	}
	if err != nil {
		return models.PendingSlots{}, err
	}
	slots, err := models.DecodePendingSlots(data)
	if err != nil {
		return models.PendingSlots{}, fmt.Errorf("pending slots: %w", err)
	}
	return slots, nil
}

// Pop returns the queued selections and clears them. The queue is cleared
// even when its contents could not be parsed.
func (q *SlotQueue) Pop() (models.PendingSlots, error) {
	slots, err := q.Peek()
	if cerr := q.store.Clear(SlotsKey); cerr != nil && err == nil {
		err = cerr
	}
	return slots, err
}

// Clear drops every queued selection.
func (q *SlotQueue) Clear() error {
	return q.store.Clear(SlotsKey)
}
