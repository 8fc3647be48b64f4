package chat

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage records one outbound message for test assertions.
type SentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Opts      SendOpts
	Photo     []byte
	Caption   string
	Album     [][]byte
}

// AnsweredCallback records one AnswerCallback call.
type AnsweredCallback struct {
	ID    string
	Text  string
	Alert bool
}

// MockGateway implements Gateway and Source for testing. It records every
// outbound call and allows simulating inbound updates via SimulateUpdate.
type MockGateway struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	updates   chan Update
	nextID    int

	sent      []SentMessage
	edits     []SentMessage
	deleted   []SentMessage
	callbacks []AnsweredCallback
	files     map[string][]byte // fileID -> bytes for DownloadPhoto

	checked []int64

	// FailSend, when set, makes every outbound call return an error.
	FailSend bool
	// NotModified, when set, makes EditMessage return ErrNotModified.
	NotModified bool
}

var (
	_ Gateway = (*MockGateway)(nil)
	_ Source  = (*MockGateway)(nil)
)

// NewMockGateway creates a MockGateway with a buffered inbound channel.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		updates: make(chan Update, 100),
		files:   make(map[string][]byte),
		nextID:  100,
	}
}

// Connect marks the gateway as connected.
func (m *MockGateway) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock gateway: already closed")
	}
	m.connected = true
	return nil
}

// Updates returns the inbound update channel. Must be called after Connect.
func (m *MockGateway) Updates(ctx context.Context) (<-chan Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock gateway: not connected")
	}
	return m.updates, nil
}

// Close shuts down the mock gateway and closes the update channel.
func (m *MockGateway) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.updates)
	return nil
}

// SendMessage records the message and returns a fresh message ID.
func (m *MockGateway) SendMessage(ctx context.Context, chatID int64, text string, opts SendOpts) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return 0, fmt.Errorf("mock gateway: send failed")
	}
	m.nextID++
	m.sent = append(m.sent, SentMessage{ChatID: chatID, MessageID: m.nextID, Text: text, Opts: opts})
	return m.nextID, nil
}

// EditMessage records the edit.
func (m *MockGateway) EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts SendOpts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return fmt.Errorf("mock gateway: edit failed")
	}
	if m.NotModified {
		return ErrNotModified
	}
	m.edits = append(m.edits, SentMessage{ChatID: chatID, MessageID: messageID, Text: text, Opts: opts})
	return nil
}

// DeleteMessage records the deletion.
func (m *MockGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return fmt.Errorf("mock gateway: delete failed")
	}
	m.deleted = append(m.deleted, SentMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

// AnswerCallback records the answer.
func (m *MockGateway) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, AnsweredCallback{ID: callbackID, Text: text, Alert: alert})
	return nil
}

// SendPhoto records the photo send and returns a fresh message ID.
func (m *MockGateway) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return 0, fmt.Errorf("mock gateway: send photo failed")
	}
	m.nextID++
	m.sent = append(m.sent, SentMessage{ChatID: chatID, MessageID: m.nextID, Photo: photo, Caption: caption})
	return m.nextID, nil
}

// SendMediaGroup records the album and returns one message ID per photo.
func (m *MockGateway) SendMediaGroup(ctx context.Context, chatID int64, photos [][]byte) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSend {
		return nil, fmt.Errorf("mock gateway: send media group failed")
	}
	ids := make([]int, len(photos))
	for i := range photos {
		m.nextID++
		ids[i] = m.nextID
	}
	m.sent = append(m.sent, SentMessage{ChatID: chatID, MessageID: ids[0], Album: photos})
	return ids, nil
}

// DownloadPhoto returns bytes pre-configured via SetFile.
func (m *MockGateway) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("mock gateway: unknown file %s", fileID)
	}
	return data, nil
}

// CheckChat records the probe and honors FailSend.
func (m *MockGateway) CheckChat(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, chatID)
	if m.FailSend {
		return fmt.Errorf("mock gateway: chat %d not reachable", chatID)
	}
	return nil
}

// --- Test helpers ---

// SimulateUpdate feeds an inbound update as if it came from the platform.
func (m *MockGateway) SimulateUpdate(u Update) {
	m.updates <- u
}

// SetFile pre-populates DownloadPhoto content.
func (m *MockGateway) SetFile(fileID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileID] = data
}

// Sent returns a copy of all sent messages (texts, photos, albums).
func (m *MockGateway) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastSent returns the most recent sent message, if any.
func (m *MockGateway) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// Edits returns a copy of all message edits.
func (m *MockGateway) Edits() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.edits))
	copy(out, m.edits)
	return out
}

// LastEdit returns the most recent edit, if any.
func (m *MockGateway) LastEdit() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return SentMessage{}, false
	}
	return m.edits[len(m.edits)-1], true
}

// Deleted returns a copy of all recorded deletions.
func (m *MockGateway) Deleted() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.deleted))
	copy(out, m.deleted)
	return out
}

// Checked returns a copy of all chat IDs probed via CheckChat.
func (m *MockGateway) Checked() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.checked))
	copy(out, m.checked)
	return out
}

// Callbacks returns a copy of all answered callbacks.
func (m *MockGateway) Callbacks() []AnsweredCallback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AnsweredCallback, len(m.callbacks))
	copy(out, m.callbacks)
	return out
}
