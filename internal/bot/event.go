package bot

import "strings"

// Literal command markers looked for inside free text.
const (
	searchMarker = "buscar:"
	reportMarker = "Reportes:"
)

// Postback titles the responder understands. Buttons emitted by the bot
// carry these same titles, so the vocabulary is closed.
const (
	TitleAddFavorite     = "add favorite"
	TitleListFavorites   = "list favorites"
	TitleCountUsers      = "count users"
	TitleCountChatsToday = "count chats today"
)

// Postback is a structured button-click event.
type Postback struct {
	Title   string
	Payload string
}

// Message is the free-form half of an inbound event.
type Message struct {
	Text           string
	HasAttachments bool
}

// Event is one decoded inbound webhook event. At most one of Postback and
// Message is meaningful; both absent means there is nothing to do.
type Event struct {
	SenderID string
	Postback *Postback
	Message  *Message
}

// ActionKind enumerates everything the responder can be asked to do.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionAddFavorite
	ActionListFavorites
	ActionCountUsers
	ActionCountChatsToday
	ActionSearchSongs
	ActionReportMenu
	ActionCannedReply
)

// Action is the classified intent of one inbound event.
type Action struct {
	Kind    ActionKind
	TrackID string
	Query   string
}

// Classify decides the intent of an inbound event. Exactly one branch fires,
// tested in precedence order: postback, then message text, then attachments.
// Unrecognized postback titles and structurally empty events classify as
// ActionNone.
func Classify(event Event) Action {
	if event.Postback != nil {
		switch event.Postback.Title {
		case TitleAddFavorite:
			return Action{Kind: ActionAddFavorite, TrackID: event.Postback.Payload}
		case TitleListFavorites:
			return Action{Kind: ActionListFavorites}
		case TitleCountUsers:
			return Action{Kind: ActionCountUsers}
		case TitleCountChatsToday:
			return Action{Kind: ActionCountChatsToday}
		default:
			return Action{Kind: ActionNone}
		}
	}

	if event.Message != nil && event.Message.Text != "" {
		text := event.Message.Text
		if strings.Contains(text, searchMarker) {
			parts := strings.SplitN(text, searchMarker, 2)
			return Action{Kind: ActionSearchSongs, Query: strings.TrimSpace(parts[1])}
		}
		if strings.Contains(text, reportMarker) {
			return Action{Kind: ActionReportMenu}
		}
		return Action{Kind: ActionCannedReply}
	}

	if event.Message != nil && event.Message.HasAttachments {
		return Action{Kind: ActionCannedReply}
	}

	return Action{Kind: ActionNone}
}
