package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hmkang/maieut/internal/assess"
	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/llm"
	"github.com/hmkang/maieut/internal/session"
	"github.com/hmkang/maieut/internal/store"
	"github.com/hmkang/maieut/internal/tutor"
)

// newTestServer wires real packages over a mock provider. Each canned
// response is consumed in call order: dialogue first, then assessment.
func newTestServer(t *testing.T, mock *llm.MockProvider) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tut := tutor.New(mock, tutor.DefaultConfig())
	ev := assess.New(mock, assess.DefaultConfig())
	orch := conversation.New(tut, ev)
	svc := session.New(st, orch, tut, nil)
	return NewServer(svc, orch, nil)
}

func textMock(s string) llm.MockResponse {
	raw, _ := json.Marshal(s)
	return llm.MockResponse{Content: raw}
}

func evalMock(score int) llm.MockResponse {
	raw, _ := json.Marshal(map[string]any{
		"suggested_score": score,
		"dimensions": map[string]int{
			"depth": score, "breadth": score, "application": score,
			"metacognition": score, "engagement": score,
		},
		"insights":          []string{"thinking aloud"},
		"growth_indicators": []string{},
		"next_focus":        "keep going",
	})
	return llm.MockResponse{Content: raw}
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, payload
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec, payload := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || payload["status"] != "ok" {
		t.Fatalf("health = %d %v", rec.Code, payload)
	}
}

func TestInitialChat(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(textMock("Hello! What do you know about tides?")))

	rec, payload := doJSON(t, s, http.MethodPost, "/api/chat/initial",
		`{"topic":"tides","difficulty":"easy"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %v", rec.Code, payload)
	}
	if payload["initial_message"] == "" || payload["understanding_score"].(float64) != 0 {
		t.Errorf("payload = %v", payload)
	}
}

func TestInitialChatBadDifficulty(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec, _ := doJSON(t, s, http.MethodPost, "/api/chat/initial",
		`{"topic":"tides","difficulty":"impossible"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestSocraticChat(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(
		textMock("Why does the moon matter here?"),
		evalMock(35),
	))

	body := `{
		"topic": "tides",
		"difficulty": "normal",
		"messages": [
			{"role": "assistant", "content": "What causes tides?"},
			{"role": "user", "content": "The moon pulls the water."}
		],
		"understanding_score": 20,
		"dimensions": {"depth": 20, "breadth": 10, "application": 5, "metacognition": 5, "engagement": 40}
	}`
	rec, payload := doJSON(t, s, http.MethodPost, "/api/chat/socratic", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %v", rec.Code, payload)
	}
	if payload["understanding_score"].(float64) != 35 {
		t.Errorf("score = %v, want 35", payload["understanding_score"])
	}
	if payload["socratic_response"] != "Why does the moon matter here?" {
		t.Errorf("response = %v", payload["socratic_response"])
	}
	if payload["feedback"] == "" {
		t.Error("feedback missing")
	}
}

func TestSocraticChatRejectsNonUserTail(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	body := `{"topic":"tides","difficulty":"normal","messages":[{"role":"assistant","content":"hi"}]}`
	rec, _ := doJSON(t, s, http.MethodPost, "/api/chat/socratic", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestTeacherRoutesRequireKey(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec, _ := doJSON(t, s, http.MethodPost, "/api/teacher/sessions",
		`{"topic":"tides","difficulty":"easy"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	mock := llm.NewMockProvider(
		textMock("yes"), // topic validation at create
		textMock("Hello! What do you think a tide is?"), // greeting at join
		textMock("And what role does the moon play?"),   // turn dialogue
		evalMock(25), // turn assessment
	)
	s := newTestServer(t, mock)
	teacher := map[string]string{"X-Teacher-Key": "key-1"}

	rec, created := doJSON(t, s, http.MethodPost, "/api/teacher/sessions",
		`{"topic":"tides","difficulty":"normal"}`, teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d %v", rec.Code, created)
	}
	sessionID := created["session_id"].(string)

	rec, info := doJSON(t, s, http.MethodGet, "/api/session/"+sessionID, "", nil)
	if rec.Code != http.StatusOK || info["active"] != true {
		t.Fatalf("info = %d %v", rec.Code, info)
	}

	rec, joined := doJSON(t, s, http.MethodPost, "/api/session/"+sessionID+"/join",
		`{"student_name":"Mina"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join = %d %v", rec.Code, joined)
	}
	token := joined["student_token"].(string)
	if joined["initial_message"] == "" {
		t.Error("join missing greeting")
	}

	chatBody := fmt.Sprintf(`{"student_token":%q,"message":"Water moves because of the moon."}`, token)
	rec, turn := doJSON(t, s, http.MethodPost, "/api/session/"+sessionID+"/chat", chatBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d %v", rec.Code, turn)
	}
	if turn["understanding_score"].(float64) != 25 {
		t.Errorf("score = %v", turn["understanding_score"])
	}

	rec, stats := doJSON(t, s, http.MethodGet, "/api/teacher/sessions/"+sessionID, "", teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d %v", rec.Code, stats)
	}
	if stats["student_count"].(float64) != 1 {
		t.Errorf("student_count = %v", stats["student_count"])
	}

	rec, scores := doJSON(t, s, http.MethodGet, "/api/teacher/sessions/"+sessionID+"/scores", "", teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("scores = %d %v", rec.Code, scores)
	}
	scoreRows := scores["students"].([]any)
	if len(scoreRows) != 1 {
		t.Fatalf("score students = %v", scoreRows)
	}
	first := scoreRows[0].(map[string]any)
	if first["name"] != "Mina" || len(first["scores"].([]any)) != 1 {
		t.Errorf("score row = %v", first)
	}

	// Transcript restore: greeting plus the one completed turn.
	rec, hist := doJSON(t, s, http.MethodGet, "/api/session/"+sessionID+"/history/"+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history = %d %v", rec.Code, hist)
	}
	messages := hist["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("history length = %d, want 3", len(messages))
	}
	last := messages[2].(map[string]any)
	if last["role"] != "assistant" || last["content"] != "And what role does the moon play?" {
		t.Errorf("last message = %v", last)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/session/"+sessionID+"/history/not-a-token", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown student history = %d, want 404", rec.Code)
	}

	// Wrong teacher key cannot manage the session.
	rec, _ = doJSON(t, s, http.MethodGet, "/api/teacher/sessions/"+sessionID, "",
		map[string]string{"X-Teacher-Key": "other"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign stats = %d, want 403", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/teacher/sessions/"+sessionID+"/end", "", teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("end = %d", rec.Code)
	}

	// Chat after end is gone.
	rec, _ = doJSON(t, s, http.MethodPost, "/api/session/"+sessionID+"/chat", chatBody, nil)
	if rec.Code != http.StatusGone {
		t.Fatalf("chat after end = %d, want 410", rec.Code)
	}
}

func TestSessionAttributesAndCap(t *testing.T) {
	mock := llm.NewMockProvider(
		textMock("yes"), // topic validation at create
		textMock("Hello! Where have you seen erosion happen?"), // greeting for the one seat
	)
	s := newTestServer(t, mock)
	teacher := map[string]string{"X-Teacher-Key": "key-1"}

	body := `{
		"topic": "erosion",
		"title": "Rivers and rock",
		"description": "third period science",
		"difficulty": "normal",
		"show_score": false,
		"time_limit_minutes": 45,
		"max_students": 1
	}`
	rec, created := doJSON(t, s, http.MethodPost, "/api/teacher/sessions", body, teacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d %v", rec.Code, created)
	}
	if created["title"] != "Rivers and rock" || created["show_score"] != false {
		t.Errorf("created = %v", created)
	}
	if created["time_limit_minutes"].(float64) != 45 || created["max_students"].(float64) != 1 {
		t.Errorf("created = %v", created)
	}
	sessionID := created["session_id"].(string)

	rec, info := doJSON(t, s, http.MethodGet, "/api/session/"+sessionID, "", nil)
	if rec.Code != http.StatusOK || info["show_score"] != false || info["title"] != "Rivers and rock" {
		t.Fatalf("info = %d %v", rec.Code, info)
	}

	rec, joined := doJSON(t, s, http.MethodPost, "/api/session/"+sessionID+"/join",
		`{"student_name":"Mina"}`, nil)
	if rec.Code != http.StatusOK || joined["show_score"] != false {
		t.Fatalf("join = %d %v", rec.Code, joined)
	}

	// The single seat is taken.
	rec, _ = doJSON(t, s, http.MethodPost, "/api/session/"+sessionID+"/join",
		`{"student_name":"Jun"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("join full = %d, want 409", rec.Code)
	}
}

func TestJoinUnknownSession(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec, _ := doJSON(t, s, http.MethodPost, "/api/session/0000000000000XXXX/join",
		`{"student_name":"Mina"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestValidateTopicEndpoint(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider(textMock("no")))
	rec, payload := doJSON(t, s, http.MethodPost, "/api/topic/validate",
		`{"topic":"asdf","difficulty":"easy"}`, nil)
	if rec.Code != http.StatusBadRequest || payload["valid"] != false {
		t.Fatalf("reject = %d %v", rec.Code, payload)
	}

	s2 := newTestServer(t, llm.NewMockProvider(textMock("yes")))
	rec, payload = doJSON(t, s2, http.MethodPost, "/api/topic/validate",
		`{"topic":"the water cycle","difficulty":"easy"}`, nil)
	if rec.Code != http.StatusOK || payload["valid"] != true {
		t.Fatalf("accept = %d %v", rec.Code, payload)
	}
}
