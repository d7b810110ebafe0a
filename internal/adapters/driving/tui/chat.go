// Package tui provides the interactive chat interface built on Bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/soundbench/soundbench/internal/core/domain"
	"github.com/soundbench/soundbench/internal/core/ports/driving"
)

// Message types for the chat update loop.
type (
	// deltaMsg carries one streamed reply fragment.
	deltaMsg string

	// turnDoneMsg signals the current turn completed.
	turnDoneMsg struct{ reply string }

	// turnErrMsg signals the current turn failed.
	turnErrMsg struct{ err error }
)

// Chat is the streaming chat view. It implements tea.Model.
type Chat struct {
	assistant driving.AssistantService
	session   *domain.Session
	styles    *Styles

	viewport viewport.Model
	input    textinput.Model

	// transcript is the rendered conversation so far.
	transcript strings.Builder

	// current accumulates the reply being streamed.
	current strings.Builder

	// deltas carries fragments from the in-flight turn's goroutine.
	deltas chan string

	// cancel aborts the in-flight turn.
	cancel context.CancelFunc

	streaming bool
	err       error
	width     int
	height    int
	ready     bool
}

// Ensure Chat implements tea.Model.
var _ tea.Model = (*Chat)(nil)

// NewChat creates the chat view with a fresh session.
func NewChat(assistant driving.AssistantService) *Chat {
	input := textinput.New()
	input.Placeholder = "Ask about your studio gear..."
	input.Focus()
	input.CharLimit = 2000

	return &Chat{
		assistant: assistant,
		session:   assistant.NewSession(),
		styles:    DefaultStyles(),
		input:     input,
	}
}

// Init implements tea.Model.
func (c *Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		inputHeight := 3
		if !c.ready {
			c.viewport = viewport.New(msg.Width, msg.Height-inputHeight-2)
			c.ready = true
		} else {
			c.viewport.Width = msg.Width
			c.viewport.Height = msg.Height - inputHeight - 2
		}
		c.input.Width = msg.Width - 6
		c.refresh()
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if c.cancel != nil {
				c.cancel()
			}
			return c, tea.Quit

		case tea.KeyEsc:
			// Esc abandons the in-flight turn but keeps the session.
			if c.streaming && c.cancel != nil {
				c.cancel()
			}
			return c, nil

		case tea.KeyEnter:
			if c.streaming {
				return c, nil
			}
			message := strings.TrimSpace(c.input.Value())
			if message == "" {
				return c, nil
			}
			c.input.Reset()
			return c, c.startTurn(message)
		}

	case deltaMsg:
		if !c.streaming {
			return c, nil
		}
		c.current.WriteString(string(msg))
		c.refresh()
		return c, c.waitForDelta()

	case turnDoneMsg:
		// The completed reply is authoritative; fragments still in flight
		// are already part of it.
		c.current.Reset()
		c.current.WriteString(msg.reply)
		c.finishTurn()
		return c, nil

	case turnErrMsg:
		c.finishTurn()
		// Cancellation arrives wrapped by the transport layer; it is the
		// user's own Esc, not an error worth showing.
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			c.err = msg.err
		}
		c.refresh()
		return c, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	cmds = append(cmds, cmd)
	c.viewport, cmd = c.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

// startTurn kicks off one conversation turn in a goroutine and begins
// polling for its streamed fragments.
func (c *Chat) startTurn(message string) tea.Cmd {
	c.err = nil
	c.streaming = true
	c.transcript.WriteString(c.styles.UserLabel.Render("You") + "\n" + message + "\n\n")
	c.current.Reset()
	c.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	deltas := make(chan string, 64)
	c.deltas = deltas

	turn := func() tea.Msg {
		defer close(deltas)
		reply, err := c.assistant.Respond(ctx, c.session, message, func(delta string) error {
			select {
			case deltas <- delta:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return turnErrMsg{err: err}
		}
		return turnDoneMsg{reply: reply}
	}

	return tea.Batch(turn, c.waitForDelta())
}

// waitForDelta polls the delta channel for the next fragment. A closed
// channel ends the polling loop; the turn result arrives separately.
func (c *Chat) waitForDelta() tea.Cmd {
	deltas := c.deltas
	return func() tea.Msg {
		delta, ok := <-deltas
		if !ok {
			return nil
		}
		return deltaMsg(delta)
	}
}

// finishTurn folds the streamed reply into the transcript.
func (c *Chat) finishTurn() {
	c.streaming = false
	c.cancel = nil
	if c.current.Len() > 0 {
		c.transcript.WriteString(c.styles.BotLabel.Render("Assistant") + "\n" + c.current.String() + "\n\n")
		c.current.Reset()
	}
	c.refresh()
}

// refresh re-renders the viewport content and pins it to the bottom.
func (c *Chat) refresh() {
	if !c.ready {
		return
	}
	content := c.transcript.String()
	if c.streaming {
		content += c.styles.BotLabel.Render("Assistant") + "\n" + c.current.String()
	}
	if c.err != nil {
		content += c.styles.Error.Render(fmt.Sprintf("error: %v", c.err)) + "\n"
	}
	c.viewport.SetContent(content)
	c.viewport.GotoBottom()
}

// View implements tea.Model.
func (c *Chat) View() string {
	if !c.ready {
		return "loading..."
	}

	status := c.styles.Muted.Render("enter: send · esc: cancel turn · ctrl+c: quit")
	if c.streaming {
		status = c.styles.Muted.Render("streaming... · esc: cancel")
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		c.styles.Title.Render("soundbench chat"),
		c.viewport.View(),
		c.styles.InputBox.Render(c.input.View()),
		status,
	)
}

// Run starts the chat program and blocks until the user quits.
func Run(assistant driving.AssistantService) error {
	program := tea.NewProgram(NewChat(assistant), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
