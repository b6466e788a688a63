package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriTable/internal/update"
	"github.com/Rorical/RoriTable/ui/components"
)

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := update.HandleUpdate(&m.appModel, msg, m.dispatcher.GetEventBus())
	if _, ok := msg.(update.CoreEventMsg); ok {
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	}
	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder

	b.WriteString(components.RenderMessages(m.appModel.Messages, m.appModel.Width))
	if len(m.appModel.Confirmations) > 0 {
		b.WriteString(components.RenderConfirmation(m.appModel.Confirmations[0], len(m.appModel.Confirmations)-1, m.appModel.Width))
	} else {
		b.WriteString(components.RenderInput(m.appModel.Input, m.appModel.Loading, m.appModel.LoadingDots, m.appModel.Width))
	}
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel.Status, m.appModel.Loading, m.appModel.LoadingDots, m.appModel.Width))

	return b.String()
}
