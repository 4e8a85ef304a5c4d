package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// encodeVec3 writes a position in the {"x","y","z"} form clients parse.
func encodeVec3(v core.Vec3) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"x":0,"y":0,"z":0}`
	}
	return string(data)
}

func encodeConfig(c core.HotspotConfig) string {
	if c.IsZero() {
		return "{}"
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GetHotspots lists the hotspots of an activity in sort order.
func (s *Service) GetHotspots(ctx context.Context, args rpc.GetHotspotsArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}

	list, err := s.deps.Store.Hotspots(ctx, args.GearID)
	if err != nil {
		return nil, err
	}

	out := rpc.GetHotspotsResult{Hotspots: make([]rpc.HotspotRecord, 0, len(list))}
	for _, h := range list {
		typ := string(h.Type)
		if typ == "" {
			typ = string(core.HotspotInfo)
		}
		icon := h.Icon
		if icon == "" {
			icon = typ
		}
		out.Hotspots = append(out.Hotspots, rpc.HotspotRecord{
			ID:        h.ID,
			ModelID:   h.ModelID,
			Type:      typ,
			Title:     h.Title,
			Content:   h.Content,
			Position:  encodeVec3(h.Position),
			Icon:      icon,
			Config:    encodeConfig(h.Config),
			SortOrder: h.SortOrder,
		})
	}
	return out, nil
}

// SaveHotspot creates (id 0) or updates a hotspot. Position and config are
// read tolerantly; the type must be one of the known kinds.
func (s *Service) SaveHotspot(ctx context.Context, args rpc.SaveHotspotArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}
	if _, err := requireManage(ctx); err != nil {
		return nil, err
	}

	typ := core.HotspotType(strings.ToLower(strings.TrimSpace(args.Type)))
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidParam, args.Type)
	}

	if args.ID > 0 {
		existing, err := s.deps.Store.Hotspot(ctx, args.ID)
		if err != nil {
			return nil, err
		}
		if existing.GearID != args.GearID {
			return nil, ErrNotFound
		}
	}

	pos, _ := s.parser.ParseVec3(args.Position, core.Vec3{})
	h := core.Hotspot{
		ID:       args.ID,
		GearID:   args.GearID,
		ModelID:  args.ModelID,
		Type:     typ,
		Title:    args.Title,
		Content:  args.Content,
		Position: pos,
		Icon:     args.Icon,
		Config:   s.parser.ParseHotspotConfig(args.Config),
	}
	if err := s.deps.Store.SaveHotspot(ctx, &h); err != nil {
		return nil, err
	}

	s.logger.Info("Hotspot saved", "gearid", h.GearID, "hotspot", h.ID, "type", h.Type)
	return core.SaveResult{Success: true, ID: h.ID}, nil
}

// DeleteHotspot removes a hotspot. The hotspot must exist before the
// capability is checked against its activity.
func (s *Service) DeleteHotspot(ctx context.Context, args rpc.DeleteHotspotArgs) (any, error) {
	h, err := s.deps.Store.Hotspot(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Store.Activity(ctx, h.GearID); err != nil {
		return nil, err
	}
	if _, err := requireManage(ctx); err != nil {
		return nil, err
	}
	if err := s.deps.Store.DeleteHotspot(ctx, args.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Hotspot deleted", "gearid", h.GearID, "hotspot", h.ID)
	return rpc.DeleteResult{Success: true}, nil
}
