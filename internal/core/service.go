package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Rorical/RoriTable/internal/agent"
	"github.com/Rorical/RoriTable/internal/config"
	"github.com/Rorical/RoriTable/internal/eventbus"
	"github.com/Rorical/RoriTable/internal/models"
)

// ErrBusy is reported when a message arrives while a turn is still running.
var ErrBusy = errors.New("still working on the previous message")

type ChatService struct {
	agent           *agent.Agent
	setupErr        error
	config          *config.Config
	state           *ChatState
	eventBus        *eventbus.EventBus
	logger          *slog.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	turns           sync.WaitGroup
	pendingConfirms map[string]chan bool
	confirmMutex    sync.Mutex
}

// NewChatService always returns a service, so the UI has something to talk to
// even when the profile is incomplete; the welcome text explains what is missing.
func NewChatService(cfg *config.Config, eb *eventbus.EventBus, logger *slog.Logger, model agent.Model) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	service := &ChatService{
		config:          cfg,
		state:           NewChatState(),
		eventBus:        eb,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		pendingConfirms: make(map[string]chan bool),
	}

	service.agent, service.setupErr = NewAgent(cfg, AgentOptions{
		Confirmator: service,
		Observer:    service.observe,
		Logger:      logger,
		Model:       model,
	})
	if service.setupErr != nil {
		logger.Warn("chat service not ready", "err", service.setupErr)
	}

	service.addWelcomeMessages()
	return service
}

// Start pushes the initial state and begins consuming UI events.
func (cs *ChatService) Start() {
	cs.pushStateToUI()
	go cs.eventLoop()
}

// Stop cancels running turns and waits for them to finish.
func (cs *ChatService) Stop() {
	cs.cancel()
	cs.turns.Wait()
}

func (cs *ChatService) IsReady() bool {
	return cs.agent != nil
}

func (cs *ChatService) eventLoop() {
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		cs.processMessage(e.Message)
	case eventbus.ConfirmationResponseEvent:
		cs.handleConfirmationResponse(e)
	}
}

// processMessage starts a turn in the background so the event loop stays free
// to deliver confirmation responses while tools run.
func (cs *ChatService) processMessage(userMessage string) {
	if cs.agent == nil {
		cs.state.FinishProcessing(nil, cs.setupErr)
		cs.pushStateToUI()
		return
	}
	if !cs.state.TryStartProcessing() {
		cs.pushError(ErrBusy)
		return
	}
	cs.pushStateToUI()

	history := cs.state.GetChatHistory()
	cs.turns.Add(1)
	go func() {
		defer cs.turns.Done()
		result, err := cs.agent.Run(cs.ctx, history, userMessage)
		if err != nil {
			cs.logger.Error("conversation turn failed", "err", err)
			err = fmt.Errorf("could not complete the request: %w", err)
		}
		cs.state.FinishProcessing(result.History, err)
		cs.pushStateToUI()
	}()
}

// observe streams agent progress into the state so the UI updates per step.
func (cs *ChatService) observe(ev agent.Event) {
	if ev.Message == nil {
		return
	}
	cs.state.AppendMessage(*ev.Message)
	cs.pushStateToUI()
}

func (cs *ChatService) pushStateToUI() {
	err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Messages:     cs.state.GetMessages(),
		IsProcessing: cs.state.IsProcessing(),
		Error:        cs.state.GetLastError(),
	})
	if err != nil {
		cs.logger.Warn("failed to send state to UI", "err", err)
	}
}

func (cs *ChatService) pushError(err error) {
	if sendErr := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Messages:     cs.state.GetMessages(),
		IsProcessing: cs.state.IsProcessing(),
		Error:        err,
	}); sendErr != nil {
		cs.logger.Warn("failed to send error to UI", "err", sendErr)
	}
}

// GetInitialMessages returns the messages shown before the first turn.
func (cs *ChatService) GetInitialMessages() []models.Message {
	return cs.state.GetMessages()
}

func (cs *ChatService) addWelcomeMessages() {
	cs.state.AddProgramMessage("-- RORITABLE --")

	if cs.agent != nil {
		cs.state.AddProgramMessage(fmt.Sprintf("Active Profile: %s [OK]", cs.config.ActiveProfile))
		cs.state.AddProgramMessage("Describe the record you want to create and press Enter")
	} else {
		cs.state.AddProgramMessage(fmt.Sprintf("Active Profile: %s [NOT CONFIGURED]", cs.config.ActiveProfile))
		cs.state.AddProgramMessage(cs.setupErr.Error())
		cs.state.AddProgramMessage("• Run: roritable profile edit")
		cs.state.AddProgramMessage("• Or set OPENAI_API_KEY, SMARTSUITE_API_KEY and SMARTSUITE_ACCOUNT_ID")
	}
	if cs.config.ConfirmWrites {
		cs.state.AddProgramMessage("Record creation asks for confirmation (y/n)")
	}
	cs.state.AddProgramMessage("Controls: Enter to send, Ctrl+C or Esc to exit")
	cs.state.AddProgramMessage("")
}

// RequestConfirmation implements tools.Confirmator. It blocks until the user
// answers or the service stops; anything but an explicit yes is a no.
func (cs *ChatService) RequestConfirmation(operation, command string, dangerous bool) bool {
	id := uuid.NewString()
	responseChan := make(chan bool, 1)

	cs.confirmMutex.Lock()
	cs.pendingConfirms[id] = responseChan
	cs.confirmMutex.Unlock()

	defer func() {
		cs.confirmMutex.Lock()
		delete(cs.pendingConfirms, id)
		cs.confirmMutex.Unlock()
	}()

	err := cs.eventBus.SendToUI(eventbus.ConfirmationRequestEvent{
		ID:        id,
		Operation: operation,
		Command:   command,
		Dangerous: dangerous,
	})
	if err != nil {
		cs.logger.Warn("failed to request confirmation", "err", err)
		return false
	}

	select {
	case approved := <-responseChan:
		return approved
	case <-cs.ctx.Done():
		return false
	}
}

func (cs *ChatService) handleConfirmationResponse(response eventbus.ConfirmationResponseEvent) {
	cs.confirmMutex.Lock()
	responseChan, exists := cs.pendingConfirms[response.ID]
	cs.confirmMutex.Unlock()

	if exists {
		select {
		case responseChan <- response.Approved:
		default:
		}
	}
}
