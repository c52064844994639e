package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Segment is one scene of a saved playthrough: the text that was shown,
// when it was generated, and the label of the choice that left it.
// ChoiceMade is empty on the final segment.
type Segment struct {
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	ChoiceMade string    `json:"choice_made,omitempty"`
}

// Transcript is the linear record of one playthrough of a generated
// story. Generated stories have no reusable graph structure, only this
// history.
type Transcript struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Segments     []Segment `json:"segments"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	CoverImage   string    `json:"cover_image,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Rating       int       `json:"rating,omitempty"` // 1-5 stars
}

// New creates an empty transcript with a fresh ID and timestamps.
func New(title string) *Transcript {
	now := time.Now()
	return &Transcript{
		ID:           uuid.New(),
		Title:        title,
		CreatedAt:    now,
		LastModified: now,
	}
}

// Append adds a segment and bumps LastModified.
func (t *Transcript) Append(seg Segment) {
	t.Segments = append(t.Segments, seg)
	t.LastModified = time.Now()
}
