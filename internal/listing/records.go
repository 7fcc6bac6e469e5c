package listing

import (
	"strconv"

	"github.com/lojf/quizdesk/internal/models"
)

func Attendees(items []models.Attendee, f Filters) []models.Attendee {
	return Apply(items,
		BySession(f.Session, func(a models.Attendee) int { return a.ClassSession.ID }),
		Search(f.Search, func(a models.Attendee) []string { return []string{a.Name, a.Email, a.Phone} }),
	)
}

func Questions(items []models.Question, f Filters) []models.Question {
	return Apply(items,
		BySession(f.Session, func(q models.Question) int { return q.ClassSession.ID }),
		Search(f.Search, func(q models.Question) []string { return []string{q.Text} }),
		ByType(f.Type, func(q models.Question) models.QuestionType { return q.QuestionType }),
	)
}

func Feedback(items []models.Feedback, f Filters) []models.Feedback {
	return Apply(items,
		BySession(f.Session, func(fb models.Feedback) int { return fb.Attendee.ClassSession.ID }),
		Search(f.Search, func(fb models.Feedback) []string {
			return []string{fb.Content, fb.Attendee.Name, fb.Attendee.Email, fb.SessionTitle}
		}),
		ByType(f.Type, func(fb models.Feedback) models.FeedbackType { return fb.FeedbackType }),
	)
}

func Sessions(items []models.Session, f Filters) []models.Session {
	return Apply(items,
		Search(f.Search, func(s models.Session) []string {
			return []string{s.Title, s.Teacher, s.SessionCode, strconv.Itoa(s.ID)}
		}),
	)
}
