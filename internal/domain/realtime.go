package domain

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
)

// ChangeEvent is one row change pushed over the incidents change
// stream. The payload carries the full server-side row; it never
// carries per-caller fields such as HasLiked.
type ChangeEvent struct {
	Type     ChangeType `json:"type"`
	Incident Incident   `json:"incident"`
}
