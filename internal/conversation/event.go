package conversation

import "strings"

type Kind int

const (
	KindText Kind = iota
	KindSelection
	KindMedia
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSelection:
		return "selection"
	case KindMedia:
		return "media"
	case KindCommand:
		return "command"
	}
	return "unknown"
}

// Event is one normalized user action. Payload is the message text, the
// selected action id, the media file id, or the command name without the
// leading slash.
type Event struct {
	OwnerID int64
	Kind    Kind
	Payload string
}

type Choice struct {
	Label  string
	Action string
	URL    string
}

// Render asks the delivery layer to show one message. When Photo is set,
// Text is its caption. Notice is a short toast for the triggering button;
// a Render with only a Notice shows no message.
type Render struct {
	Text     string
	Keyboard [][]Choice
	Photo    string
	Notice   string
}

func (r Render) IsNoticeOnly() bool {
	return r.Text == "" && r.Photo == "" && len(r.Keyboard) == 0
}

// action splits "name:arg1:arg2" callback data.
func action(payload string) (string, []string) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	return parts[0], parts[1:]
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
