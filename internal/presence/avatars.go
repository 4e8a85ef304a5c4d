package presence

import (
	"slices"
	"sync"

	"github.com/gearxr/gear/internal/parser"
	"github.com/gearxr/gear/internal/scene"
	"github.com/gearxr/gear/pkg/core"
)

// AvatarRadius is the size of an avatar proxy.
const AvatarRadius = 0.15

var avatarPalette = [...]uint32{0xf59e0b, 0x10b981, 0xef4444, 0x8b5cf6, 0x06b6d4, 0xec4899}

func avatarColor(userID int64) uint32 {
	i := userID % int64(len(avatarPalette))
	if i < 0 {
		i = -i
	}
	return avatarPalette[i]
}

// Avatar is the proxy of one remote participant.
type Avatar struct {
	UserID int64
	Name   string
	Object *scene.Object
	Pose   core.Pose
}

// Diff lists the user ids touched by one reconciliation.
type Diff struct {
	Created []int64
	Updated []int64
	Removed []int64
}

// AvatarSet mirrors the host's list of active participants as scene objects.
// It never expires an avatar on its own; an avatar lives until a response no
// longer lists its user.
type AvatarSet struct {
	parser *parser.Parser

	mu      sync.Mutex
	avatars map[int64]*Avatar
}

// NewAvatarSet creates an empty set.
func NewAvatarSet(p *parser.Parser) *AvatarSet {
	if p == nil {
		p = parser.NewParser(nil)
	}
	return &AvatarSet{parser: p, avatars: make(map[int64]*Avatar)}
}

// Reconcile applies one poll response to sc. Each listed participant gets a
// proxy, created on first sighting, and its pose is overwritten field by
// field; unreadable fields keep the last good value. Proxies of users missing
// from the response are removed from sc and disposed.
func (a *AvatarSet) Reconcile(sc *scene.Scene, participants []core.Participant) Diff {
	a.mu.Lock()
	defer a.mu.Unlock()

	var diff Diff
	active := make(map[int64]struct{}, len(participants))

	for _, p := range participants {
		active[p.UserID] = struct{}{}

		av, ok := a.avatars[p.UserID]
		if !ok {
			av = &Avatar{
				UserID: p.UserID,
				Object: scene.NewMeshObject("avatar", scene.KindAvatar,
					scene.Sphere{Radius: AvatarRadius},
					scene.Material{Color: avatarColor(p.UserID), Opacity: 1}),
			}
			av.Object.RefID = p.UserID
			a.avatars[p.UserID] = av
			sc.Add(av.Object)
			diff.Created = append(diff.Created, p.UserID)
		} else if !slices.Contains(diff.Created, p.UserID) {
			diff.Updated = append(diff.Updated, p.UserID)
		}

		av.Name = p.FullName()
		av.Object.Name = av.Name
		av.Pose = a.parser.ParsePose(p.Position, p.Rotation, av.Pose)
		av.Object.Position = av.Pose.Position
		av.Object.Rotation = av.Pose.Rotation
	}

	for id, av := range a.avatars {
		if _, ok := active[id]; ok {
			continue
		}
		sc.Remove(av.Object)
		av.Object.Dispose()
		delete(a.avatars, id)
		diff.Removed = append(diff.Removed, id)
	}
	slices.Sort(diff.Removed)
	return diff
}

// Clear removes every proxy from sc.
func (a *AvatarSet) Clear(sc *scene.Scene) int {
	return len(a.Reconcile(sc, nil).Removed)
}

// Get returns the avatar of a user.
func (a *AvatarSet) Get(userID int64) (*Avatar, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	av, ok := a.avatars[userID]
	return av, ok
}

// IDs returns the tracked user ids in ascending order.
func (a *AvatarSet) IDs() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]int64, 0, len(a.avatars))
	for id := range a.avatars {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of tracked avatars.
func (a *AvatarSet) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.avatars)
}
