package event

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Particulars carries per-action metadata. Each action that needs extra
// context has its own variant; the union is serialized to a generic
// {"kind": ..., "data": ...} envelope only at the storage/wire boundary.
type Particulars interface {
	ParticularsKind() string
}

type NoParticulars struct{}

func (NoParticulars) ParticularsKind() string { return "none" }

type TitleChanged struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (TitleChanged) ParticularsKind() string { return "title_changed" }

type Assigned struct {
	AssigneeIDs []uuid.UUID `json:"assignee_ids"`
}

func (Assigned) ParticularsKind() string { return "assigned" }

type Unassigned struct {
	AssigneeIDs []uuid.UUID `json:"assignee_ids"`
}

func (Unassigned) ParticularsKind() string { return "unassigned" }

type Moved struct {
	FromColumn string `json:"from_column"`
	ToColumn   string `json:"to_column"`
}

func (Moved) ParticularsKind() string { return "moved" }

type CommentPosted struct {
	CommentID        uuid.UUID   `json:"comment_id"`
	MentionedUserIDs []uuid.UUID `json:"mentioned_user_ids,omitempty"`
}

func (CommentPosted) ParticularsKind() string { return "comment_posted" }

type Published struct {
	MentionedUserIDs []uuid.UUID `json:"mentioned_user_ids,omitempty"`
}

func (Published) ParticularsKind() string { return "published" }

type particularsEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalParticulars wraps a variant in the storage envelope.
func MarshalParticulars(p Particulars) ([]byte, error) {
	if p == nil {
		p = NoParticulars{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal particulars: %w", err)
	}
	return json.Marshal(particularsEnvelope{Kind: p.ParticularsKind(), Data: data})
}

// UnmarshalParticulars restores the typed variant from the storage envelope.
func UnmarshalParticulars(raw []byte) (Particulars, error) {
	if len(raw) == 0 {
		return NoParticulars{}, nil
	}
	var env particularsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal particulars envelope: %w", err)
	}

	var target Particulars
	switch env.Kind {
	case "none", "":
		return NoParticulars{}, nil
	case "title_changed":
		target = &TitleChanged{}
	case "assigned":
		target = &Assigned{}
	case "unassigned":
		target = &Unassigned{}
	case "moved":
		target = &Moved{}
	case "published":
		target = &Published{}
	case "comment_posted":
		target = &CommentPosted{}
	default:
		return nil, fmt.Errorf("unknown particulars kind %q", env.Kind)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return nil, fmt.Errorf("unmarshal particulars %q: %w", env.Kind, err)
		}
	}
	switch v := target.(type) {
	case *TitleChanged:
		return *v, nil
	case *Assigned:
		return *v, nil
	case *Unassigned:
		return *v, nil
	case *Moved:
		return *v, nil
	case *Published:
		return *v, nil
	case *CommentPosted:
		return *v, nil
	}
	return NoParticulars{}, nil
}
