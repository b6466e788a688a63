package update

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriTable/internal/eventbus"
	"github.com/Rorical/RoriTable/internal/models"
)

// HandleKeyMsg edits the input line and sends it on enter.
func HandleKeyMsg(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyEnter:
		text := strings.TrimSpace(appModel.Input)
		if text == "" {
			return nil
		}
		if !appModel.ChatServiceReady {
			appModel.Input = ""
			appModel.Status = "Chat service not available"
			return nil
		}
		if err := eb.SendToCore(eventbus.SendMessageEvent{Message: text}); err != nil {
			appModel.Status = "Error sending message: " + err.Error()
			return nil
		}
		appModel.Input = ""
	case tea.KeyBackspace:
		if runes := []rune(appModel.Input); len(runes) > 0 {
			appModel.Input = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		appModel.Input += " "
	case tea.KeyRunes:
		appModel.Input += string(keyMsg.Runes)
	}
	return nil
}

// HandleConfirmationKey answers the oldest pending confirmation. Only y or n
// resolve it; ctrl+c still quits.
func HandleConfirmationKey(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	if keyMsg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	var approved bool
	switch strings.ToLower(keyMsg.String()) {
	case "y":
		approved = true
	case "n":
		approved = false
	default:
		return nil
	}

	pending := appModel.Confirmations[0]
	appModel.Confirmations = appModel.Confirmations[1:]
	if err := eb.SendToCore(eventbus.ConfirmationResponseEvent{ID: pending.ID, Approved: approved}); err != nil {
		appModel.Status = "Error sending confirmation: " + err.Error()
	}
	return nil
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent applies a core event to the UI model.
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		appModel.Messages = event.Messages
		appModel.Loading = event.IsProcessing

		switch {
		case event.Error != nil:
			appModel.Status = "Error: " + event.Error.Error()
		case event.IsProcessing:
			appModel.Status = "Processing"
		default:
			appModel.Status = "Ready"
		}
	case eventbus.ConfirmationRequestEvent:
		appModel.Confirmations = append(appModel.Confirmations, models.ConfirmationRequest{
			ID:        event.ID,
			Operation: event.Operation,
			Command:   event.Command,
			Dangerous: event.Dangerous,
		})
	}

	return nil
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	if appModel.Loading {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	}
	return TickCmd()
}
