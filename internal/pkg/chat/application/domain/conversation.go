package chat

import "time"

// Conversation is the durable thread between two participants. It is keyed
// by the unordered pair {SenderID, ReceiverID}; SenderID is whoever opened it.
type Conversation struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Participants returns the stored sender and receiver, in that order.
func (c *Conversation) Participants() []string {
	return []string{c.SenderID, c.ReceiverID}
}

// PairKey normalizes an unordered participant pair so both orderings map to
// the same key.
func PairKey(a, b string) (low, high string) {
	if a <= b {
		return a, b
	}
	return b, a
}
