package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ref is a foreign key the backend renders either as a bare id or as a
// nested object. It always marshals back to the bare id.
type Ref struct {
	ID    int
	Title string
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = Ref{}
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = Ref{ID: obj.ID, Title: obj.Title}
		return nil
	}
	id, err := parseID(b)
	if err != nil {
		return err
	}
	*r = Ref{ID: id}
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(r.ID)), nil
}

func parseID(b []byte) (int, error) {
	s := strings.Trim(string(b), `"`)
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

type Session struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Teacher       string    `json:"teacher"`
	Description   string    `json:"description,omitempty"`
	SessionCode   string    `json:"session_code,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	AttendeeCount int       `json:"attendee_count"`
	IsActive      bool      `json:"is_active"`
}

// SessionInput is the create/update payload for a session.
type SessionInput struct {
	Title       string    `json:"title"`
	Teacher     string    `json:"teacher"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsActive    bool      `json:"is_active"`
}

type Attendee struct {
	ID            int        `json:"id,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Place         string     `json:"place,omitempty"`
	ClassSession  Ref        `json:"class_session"`
	SessionTitle  string     `json:"session_title,omitempty"`
	SessionCode   string     `json:"session_code,omitempty"`
	HasSubmitted  bool       `json:"has_submitted"`
	QuizStartedAt *time.Time `json:"quiz_started_at,omitempty"`
	PlainPassword string     `json:"plain_password,omitempty"`
}

// AttendeeRef is the attendee as embedded in feedback rows: a bare id or
// the full nested record.
type AttendeeRef struct {
	ID           int
	Name         string
	Email        string
	Phone        string
	ClassSession Ref
}

func (a *AttendeeRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = AttendeeRef{}
		return nil
	}
	if b[0] == '{' {
		var full Attendee
		if err := json.Unmarshal(b, &full); err != nil {
			return err
		}
		*a = AttendeeRef{
			ID:           full.ID,
			Name:         full.Name,
			Email:        full.Email,
			Phone:        full.Phone,
			ClassSession: full.ClassSession,
		}
		return nil
	}
	id, err := parseID(b)
	if err != nil {
		return err
	}
	*a = AttendeeRef{ID: id}
	return nil
}

// StudentRegistration creates an attendee from the join flow. Password is
// optional; without one the student logs in with email only.
type StudentRegistration struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	SessionCode string `json:"session_code"`
	Password    string `json:"password,omitempty"`
}

// AttendeeUpdate is the admin PATCH payload.
type AttendeeUpdate struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Place        *string `json:"place,omitempty"`
	HasSubmitted *bool   `json:"has_submitted,omitempty"`
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TextResponse   QuestionType = "text_response"
)

func (t QuestionType) Valid() bool {
	return t == MultipleChoice || t == TextResponse
}

type Question struct {
	ID            int          `json:"id,omitempty"`
	Text          string       `json:"text"`
	QuestionType  QuestionType `json:"question_type"`
	Option1       string       `json:"option1,omitempty"`
	Option2       string       `json:"option2,omitempty"`
	Option3       string       `json:"option3,omitempty"`
	Option4       string       `json:"option4,omitempty"`
	CorrectOption int          `json:"correct_option,omitempty"`
	ClassSession  Ref          `json:"class_session"`
}

type Option struct {
	Index int
	Text  string
}

// Options returns the non-empty choices with their 1-based index.
func (q Question) Options() []Option {
	var out []Option
	for i, text := range []string{q.Option1, q.Option2, q.Option3, q.Option4} {
		if strings.TrimSpace(text) != "" {
			out = append(out, Option{Index: i + 1, Text: text})
		}
	}
	return out
}

// ResponseInput is one answer write. Exactly one of SelectedOption and
// TextResponse is set, depending on the question type.
type ResponseInput struct {
	Attendee       int    `json:"attendee"`
	Question       int    `json:"question"`
	SelectedOption *int   `json:"selected_option,omitempty"`
	TextResponse   string `json:"text_response,omitempty"`
}

type Response struct {
	ID             int    `json:"id"`
	Attendee       Ref    `json:"attendee"`
	Question       Ref    `json:"question"`
	SelectedOption *int   `json:"selected_option"`
	TextResponse   string `json:"text_response"`
}

type FeedbackType string

const (
	FeedbackQuiz   FeedbackType = "quiz"
	FeedbackReview FeedbackType = "review"
)

type FeedbackInput struct {
	Attendee     int          `json:"attendee"`
	Content      string       `json:"content"`
	FeedbackType FeedbackType `json:"feedback_type"`
}

type Feedback struct {
	ID           int          `json:"id"`
	Attendee     AttendeeRef  `json:"attendee"`
	Content      string       `json:"content"`
	FeedbackType FeedbackType `json:"feedback_type"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	SessionTitle string       `json:"session_title,omitempty"`
}

type Profile struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
	IsStaff   bool   `json:"is_staff"`
}

func (p Profile) DisplayName() string {
	if n := strings.TrimSpace(p.FirstName + " " + p.LastName); n != "" {
		return n
	}
	return p.Username
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// AccountRegistration is the admin/user sign-up payload.
type AccountRegistration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type VerifyCodeRequest struct {
	SessionCode       string `json:"session_code"`
	Email             string `json:"email"`
	ExpectedSessionID *int   `json:"expected_session_id,omitempty"`
}

type VerifyCodeResult struct {
	Valid     bool     `json:"valid"`
	IsNewUser bool     `json:"is_new_user"`
	Session   *Session `json:"session"`
	Message   string   `json:"message"`
}

type SendCodeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StudentIdentity is the attendee triple kept between page loads.
type StudentIdentity struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	SessionID int    `json:"session_id,omitempty"`
}

type StudentLoginResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Attendee *StudentIdentity `json:"attendee"`
}

type CompletedSessions struct {
	CompletedSessionIDs []int `json:"completed_session_ids"`
}

type QuizProgress struct {
	TotalQuestions int `json:"total_questions"`
	Answered       int `json:"answered"`
	Pending        int `json:"pending"`
}

type DashboardStats struct {
	Sessions struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Upcoming int `json:"upcoming"`
		Past     int `json:"past"`
	} `json:"sessions"`
	Attendees struct {
		Total int `json:"total"`
	} `json:"attendees"`
	Content struct {
		Questions int `json:"questions"`
		Responses int `json:"responses"`
		Reviews   int `json:"reviews"`
	} `json:"content"`
	Traffic struct {
		TotalHits      int `json:"total_hits"`
		UniqueVisitors int `json:"unique_visitors"`
	} `json:"traffic"`
	RecentActivity struct {
		Attendees int `json:"attendees"`
		Reviews   int `json:"reviews"`
	} `json:"recent_activity"`
}
