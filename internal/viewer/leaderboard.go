package viewer

import (
	"context"
	"fmt"
	"strconv"
)

var medals = [...]string{"🥇", "🥈", "🥉"}

func badgeFor(rank int) string {
	if rank >= 1 && rank <= len(medals) {
		return medals[rank-1]
	}
	return strconv.Itoa(rank)
}

// ShowLeaderboard fetches the top scores and opens the leaderboard modal.
// Nothing is cached; every call asks the host again.
func (s *Session) ShowLeaderboard(ctx context.Context) error {
	entries, err := s.deps.Gateway.GetLeaderboard(ctx, s.boot.GearID, s.leaderboardLimit)
	if err != nil {
		s.deps.Notifier.Error("Could not load leaderboard", err)
		return fmt.Errorf("fetching leaderboard: %w", err)
	}

	view := LeaderboardView{Open: true}
	if len(entries) == 0 {
		view.Message = NoScoresMessage
	}
	for i, e := range entries {
		view.Rows = append(view.Rows, LeaderboardRow{
			Rank:   i + 1,
			Badge:  badgeFor(i + 1),
			UserID: e.UserID,
			Name:   e.FullName,
			Score:  e.Score,
		})
	}

	s.mu.Lock()
	if !s.alive.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.leaderboard = view
	s.mu.Unlock()

	s.deps.UI.ShowLeaderboard(view)
	return nil
}

// CloseLeaderboard closes the modal.
func (s *Session) CloseLeaderboard() {
	s.mu.Lock()
	s.leaderboard = LeaderboardView{}
	s.mu.Unlock()
	s.deps.UI.ShowLeaderboard(LeaderboardView{})
}

// Leaderboard returns the current modal render.
func (s *Session) Leaderboard() LeaderboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.leaderboard
	v.Rows = append([]LeaderboardRow(nil), v.Rows...)
	return v
}
