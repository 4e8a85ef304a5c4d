package handlers

import (
	"context"
	"encoding/json"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// SyncSession records the caller's pose and returns the other participants
// seen within the freshness window.
func (s *Service) SyncSession(ctx context.Context, args rpc.SyncSessionArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}
	caller, _ := CallerFrom(ctx)
	now := s.deps.Now()

	err := s.deps.Presence.Touch(ctx, storage.PresenceRecord{
		GearID:   args.GearID,
		UserID:   caller.ID,
		Position: args.Position,
		Rotation: args.Rotation,
		LastSeen: now,
	})
	if err != nil {
		return nil, err
	}

	return s.Participants(ctx, args.GearID, caller.ID)
}

// Participants returns the fresh participants of an activity except the
// given user, with their names joined in. Users unknown to the store are
// skipped.
func (s *Service) Participants(ctx context.Context, gearID, except int64) ([]core.Participant, error) {
	active, err := s.deps.Presence.Active(ctx, gearID, s.deps.Now().Add(-s.deps.Freshness))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(active))
	for _, r := range active {
		if r.UserID != except {
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.deps.Store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]core.Participant, 0, len(ids))
	for _, r := range active {
		u, ok := users[r.UserID]
		if r.UserID == except || !ok {
			continue
		}
		out = append(out, core.Participant{
			UserID:    r.UserID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Position:  r.Position,
			Rotation:  r.Rotation,
		})
	}
	return out, nil
}

// TrackEvent queues an analytics row. Data that is not a JSON object is
// stored as an empty object.
func (s *Service) TrackEvent(ctx context.Context, args rpc.TrackEventArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}
	caller, _ := CallerFrom(ctx)

	data := json.RawMessage(args.Data)
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		data = json.RawMessage(`{}`)
	}

	if s.deps.Tracker != nil {
		s.deps.Tracker.Enqueue(storage.TrackingRecord{
			GearID: args.GearID,
			UserID: caller.ID,
			Action: args.Action,
			Data:   data,
			Time:   s.deps.Now(),
		})
	}
	return rpc.DeleteResult{Success: true}, nil
}
