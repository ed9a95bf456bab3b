package services

import (
	"fmt"

	"fizzy/internal/domain/event"
	"fizzy/internal/domain/user"
)

// systemCommentBody narrates a card transition for the card's comment
// stream. Actions without a narration return "" and produce no comment.
func systemCommentBody(e *event.Event, actor user.User) string {
	switch e.Action {
	case event.ActionCardClosed:
		return fmt.Sprintf("%s closed this card", actor.DisplayName)
	case event.ActionCardReopened:
		return fmt.Sprintf("%s reopened this card", actor.DisplayName)
	case event.ActionCardMoved:
		if moved, ok := e.Particulars.(event.Moved); ok {
			return fmt.Sprintf("%s moved this card from %s to %s", actor.DisplayName, moved.FromColumn, moved.ToColumn)
		}
		return fmt.Sprintf("%s moved this card", actor.DisplayName)
	}
	return ""
}
