package update

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriTable/internal/eventbus"
	"github.com/Rorical/RoriTable/internal/models"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func nextUIEvent(t *testing.T, eb *eventbus.EventBus) eventbus.UIEvent {
	t.Helper()
	select {
	case ev := <-eb.UIToCore():
		return ev
	default:
		t.Fatal("no event sent to core")
		return nil
	}
}

func TestHandleKeyMsg_TypingAndSend(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	m := &models.AppModel{ChatServiceReady: true}

	HandleUpdate(m, runes("quit"), eb)
	HandleUpdate(m, tea.KeyMsg{Type: tea.KeySpace}, eb)
	HandleUpdate(m, runes("né"), eb)
	HandleUpdate(m, tea.KeyMsg{Type: tea.KeyBackspace}, eb)
	assert.Equal(t, "quit n", m.Input)

	cmd := HandleUpdate(m, tea.KeyMsg{Type: tea.KeyEnter}, eb)
	assert.Nil(t, cmd)
	assert.Empty(t, m.Input)
	assert.Equal(t, eventbus.SendMessageEvent{Message: "quit n"}, nextUIEvent(t, eb))
}

func TestHandleKeyMsg_NotReady(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	m := &models.AppModel{Input: "hello"}

	HandleUpdate(m, tea.KeyMsg{Type: tea.KeyEnter}, eb)
	assert.Empty(t, m.Input)
	assert.Equal(t, "Chat service not available", m.Status)
	assert.Empty(t, eb.UIToCore())
}

func TestHandleKeyMsg_Quit(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()

	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		cmd := HandleUpdate(&models.AppModel{}, tea.KeyMsg{Type: key}, eb)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestConfirmationFlow(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	m := &models.AppModel{ChatServiceReady: true}

	HandleUpdate(m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "a", Operation: "Create Record"}}, eb)
	HandleUpdate(m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "b", Operation: "Create Record"}}, eb)
	require.Len(t, m.Confirmations, 2)

	// Other keys are swallowed while a confirmation is pending.
	assert.Nil(t, HandleUpdate(m, tea.KeyMsg{Type: tea.KeyEsc}, eb))
	HandleUpdate(m, runes("x"), eb)
	assert.Empty(t, m.Input)
	assert.Len(t, m.Confirmations, 2)

	HandleUpdate(m, runes("y"), eb)
	assert.Equal(t, eventbus.ConfirmationResponseEvent{ID: "a", Approved: true}, nextUIEvent(t, eb))
	HandleUpdate(m, runes("N"), eb)
	assert.Equal(t, eventbus.ConfirmationResponseEvent{ID: "b", Approved: false}, nextUIEvent(t, eb))
	assert.Empty(t, m.Confirmations)
}

func TestHandleCoreEvent_StateUpdate(t *testing.T) {
	m := &models.AppModel{}
	msgs := []models.Message{{Content: "hi", Type: models.User}}

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.StateUpdateEvent{Messages: msgs, IsProcessing: true}})
	assert.Equal(t, msgs, m.Messages)
	assert.True(t, m.Loading)
	assert.Equal(t, "Processing", m.Status)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.StateUpdateEvent{Messages: msgs, Error: errors.New("boom")}})
	assert.False(t, m.Loading)
	assert.Equal(t, "Error: boom", m.Status)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.StateUpdateEvent{Messages: msgs}})
	assert.Equal(t, "Ready", m.Status)
}

func TestHandleTickMsg(t *testing.T) {
	m := &models.AppModel{Loading: true, LoadingDots: 3}
	assert.NotNil(t, HandleTickMsg(m))
	assert.Equal(t, 0, m.LoadingDots)
}
