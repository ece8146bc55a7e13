package quiz

type GridStatus string

const (
	GridUnattempted GridStatus = "unattempted"
	GridAttempted   GridStatus = "attempted"
	GridMarked      GridStatus = "marked"
	GridCorrect     GridStatus = "correct"
	GridIncorrect   GridStatus = "incorrect"
)

type QuestionView struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	Category           string   `json:"category,omitempty"`
	Subject            string   `json:"subject,omitempty"`
	Year               string   `json:"year,omitempty"`
	ExamDate           string   `json:"examDate,omitempty"`
	Slug               string   `json:"slug,omitempty"`
	Selected           *int     `json:"selected"`
	Marked             bool     `json:"marked"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
}

type GridCell struct {
	Index      int        `json:"index"`
	QuestionID string     `json:"questionId"`
	Status     GridStatus `json:"status"`
	Current    bool       `json:"current"`
}

type Stats struct {
	Total        int `json:"total"`
	Attempted    int `json:"attempted"`
	NotAttempted int `json:"notAttempted"`
	Marked       int `json:"marked"`
}

// View is the render model of a session. Score and Percent are set once the
// answers are final.
type View struct {
	Mode         Mode         `json:"mode"`
	State        State        `json:"state"`
	CurrentIndex int          `json:"currentIndex"`
	Question     QuestionView `json:"question"`
	Grid         []GridCell   `json:"grid"`
	Stats        Stats        `json:"stats"`
	HasPrev      bool         `json:"hasPrev"`
	HasNext      bool         `json:"hasNext"`
	AttemptID    string       `json:"attemptId,omitempty"`
	Score        *int         `json:"score,omitempty"`
	Total        *int         `json:"totalQuestions,omitempty"`
	Percent      *int         `json:"percent,omitempty"`
}

func (s *Session) View() View {
	reveal := s.state != StateInProgress

	v := View{
		Mode:         s.mode,
		State:        s.state,
		CurrentIndex: s.current,
		Grid:         make([]GridCell, len(s.questions)),
		HasPrev:      s.current > 0,
		HasNext:      s.current < len(s.questions)-1,
	}

	for i, q := range s.questions {
		v.Grid[i] = GridCell{Index: i, QuestionID: q.ID, Status: s.gridStatus(i, reveal), Current: i == s.current}
	}

	attempted := len(s.answers)
	v.Stats = Stats{
		Total:        len(s.questions),
		Attempted:    attempted,
		NotAttempted: len(s.questions) - attempted,
		Marked:       len(s.marked),
	}

	q := s.questions[s.current]
	qv := QuestionView{
		ID:       q.ID,
		Question: q.Question,
		Options:  append([]string(nil), q.Options...),
		Category: q.Category,
		Subject:  q.Subject,
		Year:     q.Year,
		ExamDate: q.ExamDate,
		Slug:     q.Slug,
		Marked:   s.marked[q.ID],
	}
	if a, ok := s.answers[q.ID]; ok {
		qv.Selected = &a
	}
	if reveal {
		correct := q.CorrectAnswerIndex
		qv.CorrectAnswerIndex = &correct
		qv.Explanation = q.Explanation
	}
	v.Question = qv

	if s.attempt != nil {
		score, total := s.attempt.Score, s.attempt.TotalQuestions
		percent := Percent(score, total)
		v.AttemptID = s.attempt.ID
		v.Score = &score
		v.Total = &total
		v.Percent = &percent
	}
	return v
}

func (s *Session) gridStatus(i int, reveal bool) GridStatus {
	q := s.questions[i]
	a, answered := s.answers[q.ID]

	if reveal {
		switch {
		case !answered:
			return GridUnattempted
		case a == q.CorrectAnswerIndex:
			return GridCorrect
		default:
			return GridIncorrect
		}
	}

	switch {
	case s.marked[q.ID]:
		return GridMarked
	case answered:
		return GridAttempted
	default:
		return GridUnattempted
	}
}
