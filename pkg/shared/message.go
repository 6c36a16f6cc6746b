package shared

// MessageType says what a run service message carries.
type MessageType string

const (
	// Client to server
	MessageTypeRun MessageType = "run" // run Lines or the stored program ProgramID

	// Server to client
	MessageTypeSession MessageType = "session" // session and run id after connecting
	MessageTypeOutput  MessageType = "output"  // one printed value
	MessageTypeError   MessageType = "error"   // compile or run failure
	MessageTypeHalted  MessageType = "halted"  // program finished, Steps holds the step count
)

// Message is the JSON frame exchanged over the run service WebSocket.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`

	// For run requests
	Lines     []string `json:"lines,omitempty"`
	ProgramID string   `json:"programId,omitempty"`
	MaxSteps  int      `json:"maxSteps,omitempty"`

	// For session, output, error and halted
	SessionID string `json:"sessionId,omitempty"`
	RunID     string `json:"runId,omitempty"`
	Label     string `json:"label,omitempty"` // failing line for errors
	Steps     int    `json:"steps,omitempty"`
}
