// Package app holds the screen/selection state and the controller that owns the
// repositories and the current quiz session.
package app

type View string

const (
	ViewDashboard      View = "dashboard"
	ViewUpload         View = "upload"
	ViewAnalyze        View = "analyze"
	ViewLibrary        View = "library"
	ViewQuiz           View = "quiz"
	ViewReview         View = "review"
	ViewResults        View = "results"
	ViewQuestionDetail View = "question-detail"
)

// Restricted reports whether v needs the admin flag.
func (v View) Restricted() bool {
	return v == ViewUpload || v == ViewAnalyze
}

// navigable lists the views a plain Navigate action may open. Session and detail
// views are entered through their own actions.
var navigable = map[View]bool{
	ViewDashboard: true,
	ViewUpload:    true,
	ViewAnalyze:   true,
	ViewLibrary:   true,
}

// AppState is treated as immutable: Reduce returns a new value and never writes
// into the maps of its input.
type AppState struct {
	View               View            `json:"view"`
	IsAdmin            bool            `json:"isAdmin"`
	SearchTerm         string          `json:"searchTerm"`
	SelectedQuestionID string          `json:"selectedQuestionId,omitempty"`
	ReviewAttemptID    string          `json:"reviewAttemptId,omitempty"`
	LastAttemptID      string          `json:"lastAttemptId,omitempty"`
	PendingJobID       string          `json:"pendingJobId,omitempty"`
	Revealed           map[string]bool `json:"revealed"`
	LibrarySelections  map[string]int  `json:"librarySelections"`
}

func InitialState() AppState {
	return AppState{
		View:              ViewDashboard,
		Revealed:          map[string]bool{},
		LibrarySelections: map[string]int{},
	}
}

type ActionType string

const (
	ActionNavigate            ActionType = "navigate"
	ActionSetAdmin            ActionType = "set_admin"
	ActionSetSearch           ActionType = "set_search"
	ActionToggleReveal        ActionType = "toggle_reveal"
	ActionSelectLibraryOption ActionType = "select_library_option"
	ActionOpenQuestion        ActionType = "open_question"
	ActionBackToLibrary       ActionType = "back_to_library"
	ActionQuizStarted         ActionType = "quiz_started"
	ActionQuizFinished        ActionType = "quiz_finished"
	ActionReviewStarted       ActionType = "review_started"
	ActionSessionExited       ActionType = "session_exited"
	ActionPendingReady        ActionType = "pending_ready"
	ActionPendingCleared      ActionType = "pending_cleared"
	ActionQuestionRemoved     ActionType = "question_removed"
	ActionDeepLinkUnresolved  ActionType = "deep_link_unresolved"
)

type Action struct {
	Type       ActionType `json:"type"`
	View       View       `json:"view,omitempty"`
	IsAdmin    bool       `json:"isAdmin,omitempty"`
	Term       string     `json:"term,omitempty"`
	QuestionID string     `json:"questionId,omitempty"`
	AttemptID  string     `json:"attemptId,omitempty"`
	JobID      string     `json:"jobId,omitempty"`
	Option     int        `json:"option,omitempty"`
}

// ClientActions are the actions a client may send directly. The rest are produced
// by the controller alongside the repository or session change they describe.
var ClientActions = map[ActionType]bool{
	ActionNavigate:            true,
	ActionSetAdmin:            true,
	ActionSetSearch:           true,
	ActionToggleReveal:        true,
	ActionSelectLibraryOption: true,
	ActionBackToLibrary:       true,
}

// Reduce applies a to s. Unknown actions and disallowed transitions return s unchanged.
func Reduce(s AppState, a Action) AppState {
	switch a.Type {
	case ActionNavigate:
		if !navigable[a.View] || (a.View.Restricted() && !s.IsAdmin) {
			return s
		}
		s.View = a.View
		s.SelectedQuestionID = ""

	case ActionSetAdmin:
		s.IsAdmin = a.IsAdmin
		if !s.IsAdmin && s.View.Restricted() {
			s.View = ViewDashboard
		}

	case ActionSetSearch:
		s.SearchTerm = a.Term

	case ActionToggleReveal:
		if a.QuestionID == "" {
			return s
		}
		revealed := copyBools(s.Revealed)
		if revealed[a.QuestionID] {
			delete(revealed, a.QuestionID)
			selections := copyInts(s.LibrarySelections)
			delete(selections, a.QuestionID)
			s.LibrarySelections = selections
		} else {
			revealed[a.QuestionID] = true
		}
		s.Revealed = revealed

	case ActionSelectLibraryOption:
		if a.QuestionID == "" || a.Option < 0 {
			return s
		}
		revealed := copyBools(s.Revealed)
		revealed[a.QuestionID] = true
		selections := copyInts(s.LibrarySelections)
		selections[a.QuestionID] = a.Option
		s.Revealed = revealed
		s.LibrarySelections = selections

	case ActionOpenQuestion:
		if a.QuestionID == "" {
			return s
		}
		s.SelectedQuestionID = a.QuestionID
		s.View = ViewQuestionDetail

	case ActionBackToLibrary:
		s.SelectedQuestionID = ""
		s.View = ViewLibrary

	case ActionQuizStarted:
		s.View = ViewQuiz
		s.ReviewAttemptID = ""

	case ActionQuizFinished:
		s.View = ViewResults
		s.LastAttemptID = a.AttemptID

	case ActionReviewStarted:
		s.View = ViewReview
		s.ReviewAttemptID = a.AttemptID

	case ActionSessionExited:
		s.View = ViewDashboard
		s.ReviewAttemptID = ""

	case ActionPendingReady:
		s.PendingJobID = a.JobID

	case ActionPendingCleared:
		if a.JobID != "" && a.JobID != s.PendingJobID {
			return s
		}
		s.PendingJobID = ""

	case ActionQuestionRemoved:
		if s.Revealed[a.QuestionID] {
			revealed := copyBools(s.Revealed)
			delete(revealed, a.QuestionID)
			s.Revealed = revealed
		}
		if _, ok := s.LibrarySelections[a.QuestionID]; ok {
			selections := copyInts(s.LibrarySelections)
			delete(selections, a.QuestionID)
			s.LibrarySelections = selections
		}
		if s.SelectedQuestionID == a.QuestionID {
			s.SelectedQuestionID = ""
			if s.View == ViewQuestionDetail {
				s.View = ViewLibrary
			}
		}

	case ActionDeepLinkUnresolved:
		s.SelectedQuestionID = ""
		s.View = ViewDashboard

	default:
		return s
	}
	return s
}

func copyBools(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyInts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
