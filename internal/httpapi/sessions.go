package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/session"
	"github.com/hmkang/maieut/internal/store"
)

// SessionCreateRequest opens a tutoring room. show_score defaults to
// true, time_limit_minutes to two hours, max_students to thirty.
type SessionCreateRequest struct {
	Topic            string `json:"topic"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Difficulty       string `json:"difficulty"`
	ShowScore        *bool  `json:"show_score"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	MaxStudents      int    `json:"max_students"`
}

// SessionView is the wire form of a session.
type SessionView struct {
	ID               string     `json:"session_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Topic            string     `json:"topic"`
	Difficulty       string     `json:"difficulty"`
	Status           string     `json:"status"`
	ShowScore        bool       `json:"show_score"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	MaxStudents      int        `json:"max_students"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

func sessionView(s *store.Session) SessionView {
	return SessionView{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		Topic:            s.Topic,
		Difficulty:       s.Difficulty,
		Status:           s.Status,
		ShowScore:        s.ShowScore,
		TimeLimitMinutes: int(s.TimeLimit().Minutes()),
		MaxStudents:      s.MaxStudents,
		CreatedAt:        s.CreatedAt,
		ExpiresAt:        s.ExpiresAt,
		EndedAt:          s.EndedAt,
	}
}

// CreateSession opens a session under the caller's teacher key.
// POST /api/teacher/sessions
func (s *Server) CreateSession(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}

	var req SessionCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return badRequest(c, err.Error())
	}

	sess, err := s.svc.Create(c.Request().Context(), key, session.CreateParams{
		Topic:       req.Topic,
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  difficulty,
		ShowScore:   req.ShowScore,
		TimeLimit:   time.Duration(req.TimeLimitMinutes) * time.Minute,
		MaxStudents: req.MaxStudents,
	})
	if errors.Is(err, session.ErrTopicRejected) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, sessionView(sess))
}

// ListSessions returns the caller's sessions.
// GET /api/teacher/sessions
func (s *Server) ListSessions(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}

	sessions, err := s.svc.List(c.Request().Context(), key)
	if err != nil {
		return internalError(c, err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView(sess))
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": views})
}

// StudentView is one learner's standing on the wire.
type StudentView struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Depth     int       `json:"depth"`
	Breadth   int       `json:"breadth"`
	Applied   int       `json:"application"`
	Meta      int       `json:"metacognition"`
	Engaged   int       `json:"engagement"`
	Completed bool      `json:"completed"`
	Phase     string    `json:"phase"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStats returns the live aggregate for the teacher dashboard.
// GET /api/teacher/sessions/:id
func (s *Server) SessionStats(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}

	stats, err := s.svc.Stats(c.Request().Context(), key, c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}

	students := make([]StudentView, 0, len(stats.Students))
	for _, st := range stats.Students {
		students = append(students, StudentView{
			Name:      st.Name,
			Score:     st.Score,
			Depth:     st.Dims.Depth,
			Breadth:   st.Dims.Breadth,
			Applied:   st.Dims.Application,
			Meta:      st.Dims.Metacognition,
			Engaged:   st.Dims.Engagement,
			Completed: st.Completed,
			Phase:     st.Phase,
			JoinedAt:  st.JoinedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session":       sessionView(stats.Session),
		"student_count": stats.StudentCount,
		"completed":     stats.Completed,
		"average_score": stats.AverageScore,
		"students":      students,
	})
}

// ScorePointView is one score history row on the wire.
type ScorePointView struct {
	Score     int       `json:"score"`
	Depth     int       `json:"depth"`
	Breadth   int       `json:"breadth"`
	Applied   int       `json:"application"`
	Meta      int       `json:"metacognition"`
	Engaged   int       `json:"engagement"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionScores returns every learner's score trajectory for the
// teacher's progress charts.
// GET /api/teacher/sessions/:id/scores
func (s *Server) SessionScores(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}

	scores, err := s.svc.Scores(c.Request().Context(), key, c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}

	students := make([]map[string]any, 0, len(scores))
	for _, sc := range scores {
		points := make([]ScorePointView, 0, len(sc.Points))
		for _, p := range sc.Points {
			points = append(points, ScorePointView{
				Score:     p.Score,
				Depth:     p.Dims.Depth,
				Breadth:   p.Dims.Breadth,
				Applied:   p.Dims.Application,
				Meta:      p.Dims.Metacognition,
				Engaged:   p.Dims.Engagement,
				CreatedAt: p.CreatedAt,
			})
		}
		students = append(students, map[string]any{
			"name":   sc.Name,
			"scores": points,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": c.Param("id"),
		"students":   students,
	})
}

// EndSession closes a session.
// POST /api/teacher/sessions/:id/end
func (s *Server) EndSession(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}
	if err := s.svc.End(c.Request().Context(), key, c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// DeleteSession removes a session and its data.
// DELETE /api/teacher/sessions/:id
func (s *Server) DeleteSession(c echo.Context) error {
	key, err := teacherKey(c)
	if err != nil {
		return err
	}
	if err := s.svc.Delete(c.Request().Context(), key, c.Param("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// SessionInfo returns what a learner needs before joining.
// GET /api/session/:id
func (s *Server) SessionInfo(c echo.Context) error {
	sess, err := s.svc.Info(c.Request().Context(), c.Param("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"title":        sess.Title,
		"description":  sess.Description,
		"topic":        sess.Topic,
		"difficulty":   sess.Difficulty,
		"show_score":   sess.ShowScore,
		"max_students": sess.MaxStudents,
		"active":       sess.Active(time.Now()),
	})
}

// SessionJoinRequest registers a learner.
type SessionJoinRequest struct {
	StudentName string `json:"student_name"`
}

// JoinSession registers a learner and returns their token plus the
// tutor's greeting.
// POST /api/session/:id/join
func (s *Server) JoinSession(c echo.Context) error {
	var req SessionJoinRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.StudentName == "" {
		return badRequest(c, "student_name is required")
	}

	res, err := s.svc.Join(c.Request().Context(), c.Param("id"), req.StudentName)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":             true,
		"student_token":       res.Token,
		"initial_message":     res.Greeting,
		"understanding_score": 0,
		"topic":               res.Session.Topic,
		"difficulty":          res.Session.Difficulty,
		"show_score":          res.Session.ShowScore,
	})
}

// SessionChatRequest is one learner turn.
type SessionChatRequest struct {
	StudentToken string `json:"student_token"`
	Message      string `json:"message"`
}

// SessionChat runs one tutoring turn inside a session.
// POST /api/session/:id/chat
func (s *Server) SessionChat(c echo.Context) error {
	var req SessionChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.StudentToken == "" {
		return badRequest(c, "student_token is required")
	}
	if req.Message == "" {
		return badRequest(c, "message is required")
	}

	res, err := s.svc.Chat(c.Request().Context(), req.StudentToken, req.Message)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, SocraticChatResponse{
		Response:           res.Response,
		UnderstandingScore: res.Score,
		Dimensions:         res.Dims,
		Completed:          res.Completed,
		Feedback:           res.Feedback,
		Insights:           res.Insights,
		GrowthIndicators:   res.GrowthIndicators,
		NextFocus:          res.NextFocus,
	})
}

// SessionHistory returns one learner's transcript so a rejoining client
// can restore the conversation.
// GET /api/session/:id/history/:student
func (s *Server) SessionHistory(c echo.Context) error {
	turns, err := s.svc.Transcript(c.Request().Context(), c.Param("id"), c.Param("student"))
	if err != nil {
		return sessionError(c, err)
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id": c.Param("id"),
		"messages":   turns,
	})
}
