package quiz

import (
	"math"
	"time"

	"mcq-mastery-backend/internal/models"
)

// Score counts the questions whose recorded answer equals the correct index.
// Unanswered questions score nothing.
func Score(questions []models.Question, answers map[string]int) int {
	score := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswerIndex {
			score++
		}
	}
	return score
}

// BuildAttempt scores a finished pass. Answers for questions outside the pass are dropped.
func BuildAttempt(questions []models.Question, answers map[string]int, now time.Time) models.QuizAttempt {
	kept := make(map[string]int, len(answers))
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok {
			kept[q.ID] = a
		}
	}
	return models.QuizAttempt{
		ID:             models.NewAttemptID(now),
		Date:           now.UTC(),
		Score:          Score(questions, kept),
		TotalQuestions: len(questions),
		Answers:        kept,
	}
}

// Percent is score/total as a rounded percentage, 0 when total is 0.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

type DashboardStats struct {
	TotalQuestions int `json:"totalQuestions"`
	TotalTests     int `json:"totalTests"`
	AvgScore       int `json:"avgScore"`
	BestScore      int `json:"bestScore"`
}

// Summarize builds the dashboard figures. AvgScore is the rounded mean of per-attempt
// ratios; BestScore is the highest rounded per-attempt percentage.
func Summarize(bankSize int, attempts []models.QuizAttempt) DashboardStats {
	stats := DashboardStats{TotalQuestions: bankSize, TotalTests: len(attempts)}
	if len(attempts) == 0 {
		return stats
	}

	var ratioSum float64
	for _, a := range attempts {
		if a.TotalQuestions > 0 {
			ratioSum += float64(a.Score) / float64(a.TotalQuestions)
		}
		if p := Percent(a.Score, a.TotalQuestions); p > stats.BestScore {
			stats.BestScore = p
		}
	}
	stats.AvgScore = int(math.Round(ratioSum / float64(len(attempts)) * 100))
	return stats
}
