package httpapi

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fabiangomez1963/climaclick/internal/plugin"
)

// maxFeedEntries bounds the in-memory message feed.
const maxFeedEntries = 50

// HostMessage is one entry of the host's message feed. Popups carry HTML;
// message-bar entries carry plain text.
type HostMessage struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Level     string    `json:"level"`
	HTML      bool      `json:"html"`
	Duration  int       `json:"durationSec,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActionView describes one registered toolbar action.
type ActionView struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type toolbarAction struct {
	label     string
	onTrigger func()
}

// WebHost adapts the plugin host surface to HTTP: messages and popups land
// in an inspectable feed, toolbar actions become triggerable endpoints.
type WebHost struct {
	mu      sync.Mutex
	entries []HostMessage
	actions map[int]toolbarAction
	nextID  int
	now     func() time.Time
}

func NewWebHost() *WebHost {
	return &WebHost{
		actions: make(map[int]toolbarAction),
		now:     time.Now,
	}
}

func levelLabel(level plugin.MessageLevel) string {
	switch level {
	case plugin.LevelWarning:
		return "warning"
	case plugin.LevelError:
		return "error"
	default:
		return "info"
	}
}

func (h *WebHost) ShowMessage(title, text string, level plugin.MessageLevel, durationSec int) {
	h.append(HostMessage{
		Title:     title,
		Text:      text,
		Level:     levelLabel(level),
		Duration:  durationSec,
		CreatedAt: h.now().UTC(),
	})
}

func (h *WebHost) ShowPopup(title, html string) {
	h.append(HostMessage{
		Title:     title,
		Text:      html,
		Level:     "info",
		HTML:      true,
		CreatedAt: h.now().UTC(),
	})
}

func (h *WebHost) append(msg HostMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, msg)
	if len(h.entries) > maxFeedEntries {
		h.entries = h.entries[len(h.entries)-maxFeedEntries:]
	}
}

func (h *WebHost) AddToolbarAction(label string, onTrigger func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.actions[id] = toolbarAction{label: label, onTrigger: onTrigger}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.actions, id)
	}
}

// Messages returns a copy of the feed, oldest first.
func (h *WebHost) Messages() []HostMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HostMessage, len(h.entries))
	copy(out, h.entries)
	return out
}

// Actions lists the registered toolbar actions ordered by id.
func (h *WebHost) Actions() []ActionView {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ActionView, 0, len(h.actions))
	for id, action := range h.actions {
		out = append(out, ActionView{ID: id, Label: action.label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Trigger invokes a toolbar action by id.
func (h *WebHost) Trigger(id int) error {
	h.mu.Lock()
	action, ok := h.actions[id]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("no toolbar action with id %d", id)
	}
	action.onTrigger()
	return nil
}
