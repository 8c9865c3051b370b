package protocol

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionAdd         = "add"
	ActionRemove      = "remove"
	ActionConfirm     = "confirm"
)

const (
	TypeAck     = "ack"
	TypeError   = "error"
	TypeNotice  = "notice"  // user input problem, shown as a blocking notice
	TypeConfirm = "confirm" // yes/no question; answer with ActionConfirm + Token
	TypeFrame   = "frame"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Sections  []string `json:"sections,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Token     string   `json:"token,omitempty"`
	Confirmed bool     `json:"confirmed,omitempty"`
}

type WSResponse struct {
	Type    string      `json:"type"`             // see Type* constants
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "declined"
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
	Section string      `json:"section,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewFrame wraps a rendered section view.
func NewFrame(section string, view interface{}) WSResponse {
	return WSResponse{Type: TypeFrame, Section: section, Data: view}
}
