// pkg/core/activity.go
package core

// Participant is another viewer reported active by the host, with its raw pose payload.
// Position and Rotation are JSON strings exactly as the participant sent them.
type Participant struct {
	UserID    int64  `json:"userid"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Position  string `json:"position"`
	Rotation  string `json:"rotation"`
}

// FullName joins first and last name.
func (p Participant) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// QuizResult is the scoring reply for one answer submission.
type QuizResult struct {
	Correct  bool   `json:"correct"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// LeaderboardEntry is one aggregated row of the leaderboard.
type LeaderboardEntry struct {
	UserID   int64  `json:"userid"`
	FullName string `json:"fullname"`
	Score    int    `json:"score"`
}

// GeneratedContent is the reply of the AI content generation call.
// For quiz requests Content holds a JSON object, otherwise plain text.
type GeneratedContent struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

// GeneratedQuiz is the JSON object expected in GeneratedContent for quiz requests.
type GeneratedQuiz struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Points      int      `json:"points"`
	Explanation string   `json:"explanation,omitempty"`
}
