package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/data/repos"
	types "github.com/yungbote/optocase-backend/internal/domain"
	"github.com/yungbote/optocase-backend/internal/platform/apierr"
	"github.com/yungbote/optocase-backend/internal/platform/ctxutil"
	"github.com/yungbote/optocase-backend/internal/platform/dbctx"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

// stubAttemptService lets each test script exactly one behavior per call.
type stubAttemptService struct {
	ensure      func(dbc dbctx.Context, userID, caseID uuid.UUID, lastPage string) (*types.CaseAttempt, error)
	guardByCase func(dbc dbctx.Context, userID, caseID uuid.UUID) (*types.CaseAttempt, error)
	save        func(dbc dbctx.Context, userID, attemptID uuid.UUID, section string, data json.RawMessage, lastPage string) (*types.CaseAttempt, error)
	complete    func(dbc dbctx.Context, userID, attemptID uuid.UUID, pdfURL string) (*types.CaseAttempt, bool, error)
	listForUser func(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error)
	progress    func(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*repos.CaseProgressRow, error)
}

func (s *stubAttemptService) Ensure(dbc dbctx.Context, userID, caseID uuid.UUID, lastPage string) (*types.CaseAttempt, error) {
	return s.ensure(dbc, userID, caseID, lastPage)
}

func (s *stubAttemptService) GuardByCase(dbc dbctx.Context, userID, caseID uuid.UUID) (*types.CaseAttempt, error) {
	return s.guardByCase(dbc, userID, caseID)
}

func (s *stubAttemptService) Save(dbc dbctx.Context, userID, attemptID uuid.UUID, section string, data json.RawMessage, lastPage string) (*types.CaseAttempt, error) {
	return s.save(dbc, userID, attemptID, section, data, lastPage)
}

func (s *stubAttemptService) Complete(dbc dbctx.Context, userID, attemptID uuid.UUID, pdfURL string) (*types.CaseAttempt, bool, error) {
	return s.complete(dbc, userID, attemptID, pdfURL)
}

func (s *stubAttemptService) ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error) {
	return s.listForUser(dbc, userID)
}

func (s *stubAttemptService) ProgressByCase(dbc dbctx.Context, callerID uuid.UUID, callerRole string, caseID uuid.UUID) ([]*repos.CaseProgressRow, error) {
	return s.progress(dbc, callerID, callerRole, caseID)
}

// attemptTestRouter mounts the handler the way the real router does, with a
// fixed authenticated caller injected ahead of it.
func attemptTestRouter(tb testing.TB, svc *stubAttemptService, rd *ctxutil.RequestData) *gin.Engine {
	tb.Helper()
	gin.SetMode(gin.TestMode)
	h := NewAttemptHandler(testLogger(tb), svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	})
	r.POST("/case-attempts/ensure", h.Ensure)
	r.GET("/case-attempts/by-case/:caseId", h.GetByCase)
	r.PUT("/case-attempts/:attemptId/save", h.Save)
	r.POST("/case-attempts/:attemptId/complete", h.Complete)
	r.GET("/my-progress", h.MyProgress)
	r.GET("/cases/:caseId/progress", h.CaseProgress)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(tb testing.TB, w *httptest.ResponseRecorder) map[string]any {
	tb.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		tb.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func errorCode(tb testing.TB, w *httptest.ResponseRecorder) string {
	tb.Helper()
	body := decodeBody(tb, w)
	e, ok := body["error"].(map[string]any)
	if !ok {
		tb.Fatalf("no error envelope in %q", w.Body.String())
	}
	code, _ := e["code"].(string)
	return code
}

func TestEnsureRejectsMissingCaseID(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	r := attemptTestRouter(t, &stubAttemptService{}, student)

	w := doJSON(r, http.MethodPost, "/case-attempts/ensure", gin.H{"lastPage": "exam"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "MISSING_CASE_ID" {
		t.Fatalf("code = %q, want MISSING_CASE_ID", code)
	}

	w = doJSON(r, http.MethodPost, "/case-attempts/ensure", gin.H{"caseId": "not-a-uuid"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "MISSING_CASE_ID" {
		t.Fatalf("code = %q, want MISSING_CASE_ID", code)
	}
}

func TestEnsurePassesCallerAndCase(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	caseID := uuid.New()
	attempt := &types.CaseAttempt{ID: uuid.New(), CaseID: caseID, UserID: student.UserID, Status: types.AttemptInProgress}

	var gotUser, gotCase uuid.UUID
	var gotLastPage string
	svc := &stubAttemptService{
		ensure: func(dbc dbctx.Context, userID, cID uuid.UUID, lastPage string) (*types.CaseAttempt, error) {
			gotUser, gotCase, gotLastPage = userID, cID, lastPage
			return attempt, nil
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodPost, "/case-attempts/ensure", gin.H{"caseId": caseID.String(), "lastPage": "exam"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotUser != student.UserID || gotCase != caseID || gotLastPage != "exam" {
		t.Fatalf("service got (%s, %s, %q)", gotUser, gotCase, gotLastPage)
	}
	body := decodeBody(t, w)
	att, ok := body["attempt"].(map[string]any)
	if !ok || att["id"] != attempt.ID.String() {
		t.Fatalf("attempt envelope = %v", body["attempt"])
	}
}

func TestEnsureCaseCompletedCarriesAttemptPayload(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	blocked := &types.CaseAttempt{ID: uuid.New(), Status: types.AttemptCompleted}
	svc := &stubAttemptService{
		ensure: func(dbc dbctx.Context, userID, caseID uuid.UUID, lastPage string) (*types.CaseAttempt, error) {
			return nil, apierr.New(http.StatusForbidden, "CASE_COMPLETED", fmt.Errorf("case already completed")).
				WithPayload(map[string]any{"attempt": blocked})
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodPost, "/case-attempts/ensure", gin.H{"caseId": uuid.NewString()})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := errorCode(t, w); code != "CASE_COMPLETED" {
		t.Fatalf("code = %q", code)
	}
	body := decodeBody(t, w)
	att, ok := body["attempt"].(map[string]any)
	if !ok || att["id"] != blocked.ID.String() {
		t.Fatalf("payload attempt = %v", body["attempt"])
	}
}

func TestGetByCaseReturnsNullWithoutAttempt(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	svc := &stubAttemptService{
		guardByCase: func(dbc dbctx.Context, userID, caseID uuid.UUID) (*types.CaseAttempt, error) {
			return nil, nil
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodGet, "/case-attempts/by-case/"+uuid.NewString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if v, present := body["attempt"]; !present || v != nil {
		t.Fatalf("attempt = %v, want explicit null", v)
	}

	w = doJSON(r, http.MethodGet, "/case-attempts/by-case/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "MISSING_CASE_ID" {
		t.Fatalf("code = %q", code)
	}
}

func TestSaveMapsServiceOutcomes(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	attemptID := uuid.New()

	var gotSection, gotData string
	svc := &stubAttemptService{
		save: func(dbc dbctx.Context, userID, aID uuid.UUID, section string, data json.RawMessage, lastPage string) (*types.CaseAttempt, error) {
			gotSection, gotData = section, string(data)
			if section == "bogus" {
				return nil, apierr.New(http.StatusBadRequest, "BAD_SECTION", fmt.Errorf("unknown section"))
			}
			return &types.CaseAttempt{ID: aID}, nil
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodPut, "/case-attempts/"+attemptID.String()+"/save",
		gin.H{"section": "exam", "data": gin.H{"va": "20/30"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotSection != "exam" || gotData != `{"va":"20/30"}` {
		t.Fatalf("service got section %q data %q", gotSection, gotData)
	}
	body := decodeBody(t, w)
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}

	w = doJSON(r, http.MethodPut, "/case-attempts/"+attemptID.String()+"/save",
		gin.H{"section": "bogus", "data": gin.H{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "BAD_SECTION" {
		t.Fatalf("code = %q", code)
	}

	w = doJSON(r, http.MethodPut, "/case-attempts/not-a-uuid/save", gin.H{"section": "exam"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCompleteReportsAlreadyCompleted(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	calls := 0
	svc := &stubAttemptService{
		complete: func(dbc dbctx.Context, userID, attemptID uuid.UUID, pdfURL string) (*types.CaseAttempt, bool, error) {
			calls++
			return &types.CaseAttempt{ID: attemptID}, calls > 1, nil
		},
	}
	r := attemptTestRouter(t, svc, student)
	path := "/case-attempts/" + uuid.NewString() + "/complete"

	w := doJSON(r, http.MethodPost, path, gin.H{"pdfUrl": "https://cdn.example.com/r.pdf"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
	if _, present := body["alreadyCompleted"]; present {
		t.Fatalf("first complete flagged alreadyCompleted")
	}

	w = doJSON(r, http.MethodPost, path, nil)
	body = decodeBody(t, w)
	if body["ok"] != true || body["alreadyCompleted"] != true {
		t.Fatalf("repeat body = %v", body)
	}
}

func TestMyProgressWrapsSummaries(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	svc := &stubAttemptService{
		listForUser: func(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error) {
			return []*repos.AttemptSummary{
				{ID: uuid.New(), CaseTitle: "Progressive myopia", Status: types.AttemptInProgress},
			}, nil
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodGet, "/my-progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	attempts, ok := body["attempts"].([]any)
	if !ok || len(attempts) != 1 {
		t.Fatalf("attempts = %v", body["attempts"])
	}
}

func TestUnexpectedServiceErrorBecomesServerError(t *testing.T) {
	student := &ctxutil.RequestData{UserID: uuid.New(), Username: "stu", Role: string(types.RoleStudent)}
	svc := &stubAttemptService{
		listForUser: func(dbc dbctx.Context, userID uuid.UUID) ([]*repos.AttemptSummary, error) {
			return nil, fmt.Errorf("connection reset by peer")
		},
	}
	r := attemptTestRouter(t, svc, student)

	w := doJSON(r, http.MethodGet, "/my-progress", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if code := errorCode(t, w); code != "SERVER_ERROR" {
		t.Fatalf("code = %q", code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("connection reset")) {
		t.Fatalf("driver detail leaked: %s", w.Body.String())
	}
}
