package models

// ConfirmationRequest mirrors eventbus.ConfirmationRequestEvent to avoid an import cycle.
type ConfirmationRequest struct {
	ID        string
	Operation string
	Command   string
	Dangerous bool
}

// AppModel is the UI-only state; conversation content comes from the chat service.
type AppModel struct {
	Messages         []Message
	Input            string
	Status           string
	Loading          bool
	LoadingDots      int
	Width            int
	Height           int
	ChatServiceReady bool
	// Confirmations are answered in arrival order; the first one is on screen.
	Confirmations []ConfirmationRequest
}
