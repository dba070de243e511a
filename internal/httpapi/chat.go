package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hmkang/maieut/internal/conversation"
	"github.com/hmkang/maieut/internal/scoring"
	"github.com/hmkang/maieut/internal/session"
)

// TopicValidateRequest asks whether a topic suits Socratic exploration.
type TopicValidateRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// ValidateTopic checks a topic before any session or chat is created.
// POST /api/topic/validate
func (s *Server) ValidateTopic(c echo.Context) error {
	var req TopicValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if req.Topic == "" {
		return badRequest(c, "topic is required")
	}

	valid, err := s.svc.ValidateTopic(c.Request().Context(), req.Topic, difficulty)
	if err != nil {
		return internalError(c, err)
	}
	if !valid {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "topic not suitable for Socratic exploration",
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"valid":   true,
		"message": "topic accepted",
	})
}

// InitialChatRequest starts a stateless conversation.
type InitialChatRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// InitialChatResponse carries the opening greeting.
type InitialChatResponse struct {
	InitialMessage     string `json:"initial_message"`
	UnderstandingScore int    `json:"understanding_score"`
}

// InitialChat generates the opening greeting for a client-held
// conversation.
// POST /api/chat/initial
func (s *Server) InitialChat(c echo.Context) error {
	var req InitialChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return badRequest(c, err.Error())
	}

	state := conversation.NewState(req.Topic, difficulty)
	greeting, err := s.orch.Open(c.Request().Context(), state)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(http.StatusOK, InitialChatResponse{
		InitialMessage:     greeting,
		UnderstandingScore: 0,
	})
}

// ChatMessage is one transcript turn on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SocraticChatRequest runs one stateless turn. Messages hold the whole
// transcript and must end with the student's newest message; the client
// carries the score and dimensions between calls.
type SocraticChatRequest struct {
	Topic              string                  `json:"topic"`
	Difficulty         string                  `json:"difficulty"`
	Messages           []ChatMessage           `json:"messages"`
	UnderstandingScore int                     `json:"understanding_score"`
	Dimensions         conversation.Dimensions `json:"dimensions"`
}

// SocraticChatResponse is one stateless turn's outcome.
type SocraticChatResponse struct {
	Response           string                  `json:"socratic_response"`
	UnderstandingScore int                     `json:"understanding_score"`
	Dimensions         conversation.Dimensions `json:"dimensions"`
	Completed          bool                    `json:"completed"`
	Feedback           string                  `json:"feedback"`
	Insights           []string                `json:"insights,omitempty"`
	GrowthIndicators   []string                `json:"growth_indicators,omitempty"`
	NextFocus          string                  `json:"next_focus,omitempty"`
}

// SocraticChat runs one turn against client-held state.
// POST /api/chat/socratic
func (s *Server) SocraticChat(c echo.Context) error {
	var req SocraticChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if len(req.Messages) == 0 {
		return badRequest(c, "messages must not be empty")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != string(conversation.RoleUser) {
		return badRequest(c, "last message must come from the student")
	}

	history := make([]conversation.Turn, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		history = append(history, conversation.Turn{Role: conversation.Role(m.Role), Content: m.Content})
	}

	state := &conversation.State{
		Topic:      req.Topic,
		Difficulty: difficulty,
		History:    history,
		Score:      req.UnderstandingScore,
		Dims:       req.Dimensions,
		Phase:      conversation.PhaseInConversation,
	}

	res, err := s.orch.Step(c.Request().Context(), state, last.Content)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(http.StatusOK, SocraticChatResponse{
		Response:           res.TutorUtterance,
		UnderstandingScore: res.Score,
		Dimensions:         res.Dims,
		Completed:          res.Completed,
		Feedback:           session.ProgressFeedback(res.Score),
		Insights:           res.Insights,
		GrowthIndicators:   res.GrowthIndicators,
		NextFocus:          res.NextFocus,
	})
}

func parseDifficulty(s string) (scoring.Difficulty, error) {
	if s == "" {
		return scoring.DifficultyNormal, nil
	}
	return scoring.ParseDifficulty(s)
}
