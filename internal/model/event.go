package model

// Event names a change that other live views may need to react to.
type Event string

const (
	EventReviewAdded   Event = "review_added"
	EventBathroomAdded Event = "bathroom_added"
)

// ReviewAddedPayload accompanies EventReviewAdded.
type ReviewAddedPayload struct {
	LocationID string
	ReviewID   string
}

// BathroomAddedPayload accompanies EventBathroomAdded.
type BathroomAddedPayload struct {
	LocationID string
}
