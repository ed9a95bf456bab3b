package event

// Action tags an Event with what happened. Tags are namespaced with the
// eventable's prefix ("card_" + "closed" -> "card_closed") so downstream
// dispatch can route by convention.
type Action string

const (
	ActionCardPublished          Action = "card_published"
	ActionCardClosed             Action = "card_closed"
	ActionCardReopened           Action = "card_reopened"
	ActionCardMoved              Action = "card_moved"
	ActionCardAssigned           Action = "card_assigned"
	ActionCardUnassigned         Action = "card_unassigned"
	ActionCardTitleChanged       Action = "card_title_changed"
	ActionCardDescriptionChanged Action = "card_description_changed"
	ActionCommentCreated         Action = "comment_created"
)

// BuildAction namespaces an action suffix with the eventable prefix.
func BuildAction(prefix, suffix string) Action {
	return Action(prefix + "_" + suffix)
}

// Suffix strips the eventable prefix from the action tag.
func (a Action) Suffix() string {
	s := string(a)
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[i+1:]
		}
	}
	return s
}
