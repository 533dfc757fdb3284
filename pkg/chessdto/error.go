package chessdto

// Status codes carried by DomainError.
const (
	CodeConnectionRefused = "connection_refused"
	CodeConnectionLost    = "connection_lost"
	CodeGameFull          = "game_full"
	CodeQueueFull         = "send_queue_full"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess session error"
}

// ConnectionRefused reports a failed Listen or Connect; the user may retry.
func ConnectionRefused(msg string) DomainError {
	return DomainError{Code: CodeConnectionRefused, Message: msg, Retryable: true}
}

// ConnectionLost reports that an established peer link ended.
func ConnectionLost(msg string) DomainError {
	return DomainError{Code: CodeConnectionLost, Message: msg, Retryable: true}
}

// GameFull reports that the relay already holds two players.
func GameFull() DomainError {
	return DomainError{Code: CodeGameFull, Message: "game is full", Retryable: false}
}
