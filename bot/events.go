package bot

// EventKind is the closed set of inbound event shapes the router handles.
type EventKind int

const (
	EventCommand EventKind = iota
	EventText
	EventPhoto
	EventVoice
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventVoice:
		return "voice"
	case EventCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is one inbound update, normalized by the transport runtime.
type Event struct {
	Kind       EventKind
	ChatID     int64
	MessageID  int64
	TelegramID string
	Username   string

	// EventCommand
	Command string

	// EventText
	Text string

	// EventPhoto
	PhotoFileID string
	Caption     string

	// EventCallback
	CallbackID   string
	CallbackData string
}
