package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeStart        = "start"
	TypeSelectAnswer = "select_answer"
	TypeSubmitAnswer = "submit_answer"
	TypeNextQuestion = "next_question"
	TypePlayAgain    = "play_again"
	TypeRetry        = "retry"
	TypeRetryToken   = "retry_token"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionUpdate = "session_update"
	TypeError         = "error"
	TypePong          = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed envelope.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

type StartPayload struct {
	FirstName  string `json:"first_name"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// AnswerPayload is used by select_answer and, optionally, submit_answer to
// select and submit in one step.
type AnswerPayload struct {
	Answer string `json:"answer"`
}

// Server Messages (outgoing)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
