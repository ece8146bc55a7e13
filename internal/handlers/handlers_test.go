package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/database"
	"mcq-mastery-backend/internal/middleware"
	"mcq-mastery-backend/internal/models"
	"mcq-mastery-backend/internal/quiz"
	"mcq-mastery-backend/internal/repository"
	"mcq-mastery-backend/internal/services"
	"mcq-mastery-backend/internal/worker"
)

func testQuestion(id string, correct int) models.Question {
	return models.Question{
		ID:                 id,
		Question:           "Question " + id,
		Options:            []string{"a", "b", "c"},
		CorrectAnswerIndex: correct,
		Explanation:        "because",
		Slug:               "question-" + strings.ToLower(id),
	}
}

func newTestController(t *testing.T, bank ...models.Question) *app.Controller {
	t.Helper()
	store := database.NewMemoryStore()
	questions := repository.NewQuestionRepo(store)
	if len(bank) > 0 {
		if res := questions.Add(context.Background(), bank); !res.OK() {
			t.Fatalf("seed bank: %v", res.Err)
		}
	}
	return app.NewController(questions, repository.NewAttemptRepo(store))
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type sessionResponse struct {
	Session quiz.View    `json:"session"`
	State   app.AppState `json:"state"`
}

type errorBody struct {
	Error models.APIError `json:"error"`
	State app.AppState    `json:"state"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestStateHandler_RejectsControllerActions(t *testing.T) {
	h := NewStateHandler(newTestController(t))

	body := strings.NewReader(`{"type":"quiz_finished","attemptId":"attempt-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/state/actions", body)
	rr := httptest.NewRecorder()
	h.Dispatch(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestStateHandler_SetAdminFollowsPath(t *testing.T) {
	tests := []struct {
		name  string
		admin bool
	}{
		{name: "public path ignores body flag", admin: false},
		{name: "admin path", admin: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStateHandler(newTestController(t))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/state/actions", strings.NewReader(`{"type":"set_admin","isAdmin":true}`))
			req = req.WithContext(context.WithValue(req.Context(), middleware.AdminKey, tt.admin))
			rr := httptest.NewRecorder()
			h.Dispatch(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
			}
			var state app.AppState
			decode(t, rr, &state)
			if state.IsAdmin != tt.admin {
				t.Fatalf("expected isAdmin %v, got %v", tt.admin, state.IsAdmin)
			}
		})
	}
}

func TestQuizHandler_Flow(t *testing.T) {
	bank := []models.Question{testQuestion("A", 0), testQuestion("B", 1)}
	c := newTestController(t, bank...)
	h := NewQuizHandler(c, 10)

	rr := httptest.NewRecorder()
	h.Start(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/start", strings.NewReader(`{"count":5}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var started sessionResponse
	decode(t, rr, &started)
	if started.Session.Stats.Total != 2 {
		t.Fatalf("expected 2 questions, got %d", started.Session.Stats.Total)
	}
	if started.Session.Question.CorrectAnswerIndex != nil {
		t.Fatal("expected correct answer hidden while in progress")
	}
	if started.State.View != app.ViewQuiz {
		t.Fatalf("expected quiz view, got %s", started.State.View)
	}

	// answer only the first question, correctly
	correct := 0
	for _, q := range bank {
		if q.ID == started.Session.Question.ID {
			correct = q.CorrectAnswerIndex
		}
	}
	rr = httptest.NewRecorder()
	h.Select(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/select", strings.NewReader(fmt.Sprintf(`{"option":%d}`, correct))))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Finish(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/finish", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var finished struct {
		Attempt models.QuizAttempt `json:"attempt"`
		Percent int                `json:"percent"`
		State   app.AppState       `json:"state"`
	}
	decode(t, rr, &finished)
	if finished.Attempt.Score != 1 || finished.Attempt.TotalQuestions != 2 || finished.Percent != 50 {
		t.Fatalf("unexpected result: %+v percent=%d", finished.Attempt, finished.Percent)
	}
	if finished.State.View != app.ViewResults || finished.State.LastAttemptID != finished.Attempt.ID {
		t.Fatalf("unexpected state after finish: %+v", finished.State)
	}

	rr = httptest.NewRecorder()
	h.Finish(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/finish", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d for second finish, got %d", http.StatusConflict, rr.Code)
	}
	if got := len(c.Attempts().List()); got != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", got)
	}
}

func TestQuizHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		bank   []models.Question
		start  bool
		call   func(h *QuizHandler, rr *httptest.ResponseRecorder)
		status int
	}{
		{
			name: "no session",
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quiz", nil))
			},
			status: http.StatusConflict,
		},
		{
			name: "empty bank",
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Start(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/start", nil))
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "zero count",
			bank: []models.Question{testQuestion("A", 0)},
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Start(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/start", strings.NewReader(`{"count":0}`)))
			},
			status: http.StatusBadRequest,
		},
		{
			name:  "option out of range",
			bank:  []models.Question{testQuestion("A", 0)},
			start: true,
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Select(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/select", strings.NewReader(`{"option":7}`)))
			},
			status: http.StatusBadRequest,
		},
		{
			name:  "missing option",
			bank:  []models.Question{testQuestion("A", 0)},
			start: true,
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Select(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/select", strings.NewReader(`{}`)))
			},
			status: http.StatusBadRequest,
		},
		{
			name:  "jump out of range",
			bank:  []models.Question{testQuestion("A", 0)},
			start: true,
			call: func(h *QuizHandler, rr *httptest.ResponseRecorder) {
				h.Jump(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/jump", strings.NewReader(`{"index":3}`)))
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, tt.bank...)
			h := NewQuizHandler(c, 10)
			if tt.start {
				if _, err := c.StartQuiz(10); err != nil {
					t.Fatalf("start quiz: %v", err)
				}
			}
			rr := httptest.NewRecorder()
			tt.call(h, rr)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAttemptHandler_ReviewIsReadOnly(t *testing.T) {
	c := newTestController(t, testQuestion("A", 0), testQuestion("B", 1))
	if _, err := c.StartQuiz(2); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if _, err := c.WithSession(func(s *quiz.Session) error { return s.SelectOption(0) }); err != nil {
		t.Fatalf("select: %v", err)
	}
	attempt, _, err := c.FinishQuiz(context.Background())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	ah := NewAttemptHandler(c)
	rr := httptest.NewRecorder()
	ah.Review(rr, withParams(httptest.NewRequest(http.MethodPost, "/api/v1/attempts/"+attempt.ID+"/review", nil), "id", attempt.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var review sessionResponse
	decode(t, rr, &review)
	if review.Session.Mode != quiz.ModeReview || review.Session.Stats.Total != 1 {
		t.Fatalf("unexpected review session: %+v", review.Session)
	}

	qh := NewQuizHandler(c, 10)
	rr = httptest.NewRecorder()
	qh.Select(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quiz/select", strings.NewReader(`{"option":2}`)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	stored, _ := c.Attempts().GetByID(attempt.ID)
	for id, opt := range stored.Answers {
		if attempt.Answers[id] != opt {
			t.Fatalf("stored answers changed: %v vs %v", stored.Answers, attempt.Answers)
		}
	}
}

func TestAttemptHandler_ReviewMissingAttempt(t *testing.T) {
	h := NewAttemptHandler(newTestController(t))

	rr := httptest.NewRecorder()
	h.Review(rr, withParams(httptest.NewRequest(http.MethodPost, "/api/v1/attempts/nope/review", nil), "id", "nope"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestQuestionHandler_GetBySlug(t *testing.T) {
	c := newTestController(t, testQuestion("A", 0))
	h := NewQuestionHandler(c, nil)

	rr := httptest.NewRecorder()
	h.GetBySlug(rr, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/questions/slug/question-a", nil), "slug", "question-a"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	rr = httptest.NewRecorder()
	h.GetBySlug(rr, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/questions/slug/gone", nil), "slug", "gone"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	var body errorBody
	decode(t, rr, &body)
	if body.State.View != app.ViewDashboard {
		t.Fatalf("expected dashboard fallback, got %s", body.State.View)
	}
}

type recordingForgetter struct {
	forgotten []string
}

func (f *recordingForgetter) Forget(questionID string) {
	f.forgotten = append(f.forgotten, questionID)
}

func TestQuestionHandler_Delete(t *testing.T) {
	c := newTestController(t, testQuestion("A", 0), testQuestion("B", 1))
	forgetter := &recordingForgetter{}
	h := NewQuestionHandler(c, forgetter)

	rr := httptest.NewRecorder()
	h.Delete(rr, withParams(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/questions/A", nil), "id", "A"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if c.Questions().Count() != 1 {
		t.Fatalf("expected 1 question left, got %d", c.Questions().Count())
	}
	if len(forgetter.forgotten) != 1 || forgetter.forgotten[0] != "A" {
		t.Fatalf("expected research for A to be forgotten, got %v", forgetter.forgotten)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, withParams(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/questions/A", nil), "id", "A"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestQuestionHandler_ListSearch(t *testing.T) {
	a := testQuestion("A", 0)
	a.Subject = "Physics"
	c := newTestController(t, a, testQuestion("B", 1))
	h := NewQuestionHandler(c, nil)

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/questions?search=physics", nil))

	var body struct {
		Questions []models.Question `json:"questions"`
		Total     int               `json:"total"`
	}
	decode(t, rr, &body)
	if body.Total != 1 || body.Questions[0].ID != "A" {
		t.Fatalf("expected only A, got %+v", body.Questions)
	}
	if c.State().SearchTerm != "physics" {
		t.Fatalf("expected search term recorded, got %q", c.State().SearchTerm)
	}
}

type stubTracker struct {
	busy    map[string]bool
	results map[string]*services.ResearchResult
}

func (s *stubTracker) Start(questionID string, kind services.ResearchKind) (bool, error) {
	if questionID == "missing" {
		return false, &services.NotFoundError{Message: "Question not found"}
	}
	if s.busy[questionID] {
		return false, nil
	}
	s.busy[questionID] = true
	return true, nil
}

func (s *stubTracker) Get(questionID string, kind services.ResearchKind) (*services.ResearchResult, bool) {
	return s.results[questionID], s.busy[questionID]
}

func (s *stubTracker) Dismiss(questionID string, kind services.ResearchKind) bool {
	if _, ok := s.results[questionID]; !ok {
		return false
	}
	delete(s.results, questionID)
	return true
}

type stubExplainer struct {
	got string
}

func (s *stubExplainer) QuickExplain(ctx context.Context, concept string) (string, error) {
	s.got = concept
	return "short answer", nil
}

func TestResearchHandler_StartSuppressesDuplicates(t *testing.T) {
	tracker := &stubTracker{busy: map[string]bool{}, results: map[string]*services.ResearchResult{}}
	h := NewResearchHandler(tracker, &stubExplainer{})
	start := h.Start(services.ResearchFacts)

	var started []bool
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		start(rr, withParams(httptest.NewRequest(http.MethodPost, "/api/v1/questions/A/facts", nil), "id", "A"))
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d", http.StatusAccepted, rr.Code)
		}
		var body struct {
			Started bool `json:"started"`
		}
		decode(t, rr, &body)
		started = append(started, body.Started)
	}
	if !started[0] || started[1] {
		t.Fatalf("expected first request to start and second to be suppressed, got %v", started)
	}

	rr := httptest.NewRecorder()
	start(rr, withParams(httptest.NewRequest(http.MethodPost, "/api/v1/questions/missing/facts", nil), "id", "missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestResearchHandler_GetAndDismiss(t *testing.T) {
	tracker := &stubTracker{
		busy: map[string]bool{"B": true},
		results: map[string]*services.ResearchResult{
			"A": {QuestionID: "A", Kind: services.ResearchExplain, Explanation: "deep"},
		},
	}
	h := NewResearchHandler(tracker, &stubExplainer{})
	get := h.Get(services.ResearchExplain)

	tests := []struct {
		id     string
		status int
	}{
		{id: "A", status: http.StatusOK},
		{id: "B", status: http.StatusOK},
		{id: "C", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		get(rr, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/questions/"+tt.id+"/explain", nil), "id", tt.id))
		if rr.Code != tt.status {
			t.Fatalf("%s: expected status %d, got %d", tt.id, tt.status, rr.Code)
		}
	}

	dismiss := h.Dismiss(services.ResearchExplain)
	rr := httptest.NewRecorder()
	dismiss(rr, withParams(httptest.NewRequest(http.MethodDelete, "/api/v1/questions/A/explain", nil), "id", "A"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if _, ok := tracker.results["A"]; ok {
		t.Fatal("expected result to be dismissed")
	}
}

func TestResearchHandler_QuickExplain(t *testing.T) {
	explainer := &stubExplainer{}
	h := NewResearchHandler(&stubTracker{}, explainer)

	rr := httptest.NewRecorder()
	h.QuickExplain(rr, httptest.NewRequest(http.MethodPost, "/api/v1/explain", strings.NewReader(`{"text":"  photosynthesis "}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if explainer.got != "photosynthesis" {
		t.Fatalf("expected trimmed text, got %q", explainer.got)
	}

	rr = httptest.NewRecorder()
	h.QuickExplain(rr, httptest.NewRequest(http.MethodPost, "/api/v1/explain", strings.NewReader(`{"text":"   "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

type recordingQueue struct {
	jobs []*models.Job
	data [][]byte
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *models.Job, data []byte) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	q.data = append(q.data, data)
	return nil
}

func multipartUpload(t *testing.T, target, filename, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractionHandler_Upload(t *testing.T) {
	c := newTestController(t)
	jobs := repository.NewJobRepo()
	queue := &recordingQueue{}
	h := NewExtractionHandler(c, jobs, queue, 1<<20)

	req := multipartUpload(t, "/api/v1/admin/uploads", "notes.txt", "text/plain", []byte("1. What is 2+2?"),
		map[string]string{"subject": " Math ", "year": "2024"})
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rr.Code, rr.Body.String())
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected one queued job, got %d", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.Type != models.JobTypeDocument || job.Metadata.Subject != "Math" || job.Metadata.Year != "2024" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if c.State().PendingJobID != job.ID.String() {
		t.Fatalf("expected pending job %s in state, got %q", job.ID, c.State().PendingJobID)
	}
	if _, err := jobs.GetByID(job.ID); err != nil {
		t.Fatalf("expected job stored: %v", err)
	}
}

func TestExtractionHandler_UploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		analyze  bool
		filename string
		mime     string
		status   int
	}{
		{name: "unsupported document", filename: "clip.mp4", mime: "video/mp4", status: http.StatusUnsupportedMediaType},
		{name: "analyze needs an image", analyze: true, filename: "notes.txt", mime: "text/plain", status: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &recordingQueue{}
			h := NewExtractionHandler(newTestController(t), repository.NewJobRepo(), queue, 1<<20)

			req := multipartUpload(t, "/api/v1/admin/uploads", tt.filename, tt.mime, []byte("data"), nil)
			rr := httptest.NewRecorder()
			if tt.analyze {
				h.Analyze(rr, req)
			} else {
				h.Upload(rr, req)
			}
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			if len(queue.jobs) != 0 {
				t.Fatal("expected nothing queued")
			}
		})
	}
}

func TestExtractionHandler_QueueFull(t *testing.T) {
	jobs := repository.NewJobRepo()
	h := NewExtractionHandler(newTestController(t), jobs, &recordingQueue{err: worker.ErrQueueFull}, 1<<20)

	rr := httptest.NewRecorder()
	h.Upload(rr, multipartUpload(t, "/api/v1/admin/uploads", "notes.txt", "text/plain", []byte("text"), nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func completedJob(t *testing.T, jobs *repository.JobRepo, pending ...models.Question) uuid.UUID {
	t.Helper()
	job := &models.Job{Type: models.JobTypeDocument, Filename: "notes.txt"}
	jobs.Create(job)
	if !jobs.MarkProcessing(job.ID) || !jobs.Complete(job.ID, pending) {
		t.Fatal("failed to complete job")
	}
	return job.ID
}

func TestExtractionHandler_ConfirmCommitsPending(t *testing.T) {
	c := newTestController(t, testQuestion("A", 0))
	jobs := repository.NewJobRepo()
	h := NewExtractionHandler(c, jobs, &recordingQueue{}, 1<<20)
	id := completedJob(t, jobs, testQuestion("P1", 0), testQuestion("P2", 2))
	c.Dispatch(app.Action{Type: app.ActionPendingReady, JobID: id.String()})

	rr := httptest.NewRecorder()
	h.RemovePending(rr, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String(), "qid", "P2"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Confirm(rr, withParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", id.String()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if c.Questions().Count() != 2 {
		t.Fatalf("expected 2 questions in bank, got %d", c.Questions().Count())
	}
	state := c.State()
	if state.View != app.ViewLibrary || state.PendingJobID != "" {
		t.Fatalf("unexpected state after confirm: %+v", state)
	}

	rr = httptest.NewRecorder()
	h.Confirm(rr, withParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", id.String()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for confirmed job, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestExtractionHandler_UpdatePendingValidates(t *testing.T) {
	jobs := repository.NewJobRepo()
	h := NewExtractionHandler(newTestController(t), jobs, &recordingQueue{}, 1<<20)
	id := completedJob(t, jobs, testQuestion("P1", 0))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "one option", body: `{"question":"Q?","options":["only"],"correctAnswerIndex":0}`, status: http.StatusBadRequest},
		{name: "index out of range", body: `{"question":"Q?","options":["a","b"],"correctAnswerIndex":2}`, status: http.StatusBadRequest},
		{name: "valid edit", body: `{"question":"Edited?","options":["a","b"],"correctAnswerIndex":1}`, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := withParams(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body)), "id", id.String(), "qid", "P1")
			h.UpdatePending(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}

	job, _ := jobs.GetByID(id)
	if job.Pending[0].ID != "P1" || job.Pending[0].Question != "Edited?" {
		t.Fatalf("expected edit to keep the id, got %+v", job.Pending[0])
	}
}

func TestExtractionHandler_CancelClearsPending(t *testing.T) {
	c := newTestController(t)
	jobs := repository.NewJobRepo()
	h := NewExtractionHandler(c, jobs, &recordingQueue{}, 1<<20)
	id := completedJob(t, jobs, testQuestion("P1", 0))
	c.Dispatch(app.Action{Type: app.ActionPendingReady, JobID: id.String()})

	rr := httptest.NewRecorder()
	h.Cancel(rr, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if c.State().PendingJobID != "" {
		t.Fatal("expected pending job cleared")
	}
	if c.Questions().Count() != 0 {
		t.Fatal("expected bank untouched")
	}

	rr = httptest.NewRecorder()
	h.GetJob(rr, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "not-a-uuid"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"file": "required"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", &services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{"rate limited", &services.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests, "RATE_LIMITED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rr.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rr.Code)
			}
			var body errorBody
			decode(t, rr, &body)
			if body.Error.Code != tt.want {
				t.Errorf("expected code %s, got %s", tt.want, body.Error.Code)
			}
		})
	}
}
