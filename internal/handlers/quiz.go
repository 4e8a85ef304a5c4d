package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// Tracking actions written by the host.
const (
	ActionQuizSubmit = "quiz_submit"
)

// Feedback strings of a scored answer.
const (
	FeedbackCorrect   = "Correct"
	FeedbackIncorrect = "Incorrect"
)

// quizSubmission is the data column of a quiz_submit row.
type quizSubmission struct {
	HotspotID int64  `json:"hotspotid"`
	Answer    string `json:"answer"`
	Correct   bool   `json:"correct"`
	Score     int    `json:"score"`
}

// SubmitQuiz scores an answer and records the attempt. The answer is correct
// when it equals the configured correct index written as a string.
func (s *Service) SubmitQuiz(ctx context.Context, args rpc.SubmitQuizArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}
	caller, _ := CallerFrom(ctx)

	h, err := s.deps.Store.Hotspot(ctx, args.HotspotID)
	if err != nil {
		return nil, err
	}
	if h.GearID != args.GearID {
		return nil, ErrNotFound
	}

	var res core.QuizResult
	if ca := h.Config.CorrectAnswer; ca != nil {
		if strconv.Itoa(*ca) == args.Answer {
			res.Correct = true
			res.Score = h.Config.QuizPoints()
			res.Feedback = FeedbackCorrect
		} else {
			res.Feedback = FeedbackIncorrect
		}
	}

	data, err := json.Marshal(quizSubmission{
		HotspotID: h.ID,
		Answer:    args.Answer,
		Correct:   res.Correct,
		Score:     res.Score,
	})
	if err != nil {
		return nil, err
	}
	rec := storage.TrackingRecord{
		GearID: args.GearID,
		UserID: caller.ID,
		Action: ActionQuizSubmit,
		Data:   data,
		Time:   s.deps.Now(),
	}
	// written synchronously so the leaderboard sees it at once
	if err := s.deps.Store.AddTracking(ctx, rec); err != nil {
		return nil, err
	}
	if s.deps.Tracker != nil {
		s.deps.Tracker.Mirror(rec)
	}

	return res, nil
}

// GetLeaderboard aggregates quiz scores of an activity.
func (s *Service) GetLeaderboard(ctx context.Context, args rpc.GetLeaderboardArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}

	rows, err := s.deps.Store.Tracking(ctx, args.GearID, ActionQuizSubmit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0)
	seen := make(map[int64]bool)
	for _, r := range rows {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.deps.Store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return Leaderboard(rows, users, limit), nil
}

// Leaderboard sums, per user, the best score reached on each hotspot. Rows
// of unknown users or with unreadable data are skipped, users with a zero
// total are left out, and the rest are ranked by total descending (user id
// ascending on ties) and cut to limit.
func Leaderboard(rows []storage.TrackingRecord, users map[int64]storage.User, limit int) []core.LeaderboardEntry {
	best := make(map[int64]map[int64]int)
	for _, r := range rows {
		if _, ok := users[r.UserID]; !ok {
			continue
		}
		var sub quizSubmission
		if err := json.Unmarshal(r.Data, &sub); err != nil || sub.HotspotID == 0 {
			continue
		}
		perHotspot, ok := best[r.UserID]
		if !ok {
			perHotspot = make(map[int64]int)
			best[r.UserID] = perHotspot
		}
		if sub.Score > perHotspot[sub.HotspotID] {
			perHotspot[sub.HotspotID] = sub.Score
		}
	}

	out := make([]core.LeaderboardEntry, 0, len(best))
	for uid, perHotspot := range best {
		total := 0
		for _, v := range perHotspot {
			total += v
		}
		if total <= 0 {
			continue
		}
		u := users[uid]
		out = append(out, core.LeaderboardEntry{
			UserID:   uid,
			FullName: core.Participant{FirstName: u.FirstName, LastName: u.LastName}.FullName(),
			Score:    total,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
