package notification

// precedence ranks notification types when one recipient qualifies for several.
var precedence = map[Type]int{
	TypeChannelMessage: 1,
	TypeDirectMessage:  2,
	TypeThreadReply:    3,
	TypeMention:        4,
}

// Accumulator holds the notifications of a single dispatch pass, at most one per recipient.
// It is owned by one dispatch and must not be shared across goroutines.
type Accumulator struct {
	senderID    string
	order       []*Notification
	byRecipient map[string]*Notification
}

func NewAccumulator(senderID string) *Accumulator {
	return &Accumulator{
		senderID:    senderID,
		byRecipient: make(map[string]*Notification),
	}
}

// Merge folds a candidate into the accumulator.
// New recipients are appended. For a known recipient the entry is upgraded in place when the
// candidate outranks it; otherwise the candidate is discarded. The sender is never added.
// Merge reports whether the accumulator changed.
func (a *Accumulator) Merge(candidate *Notification) bool {
	if candidate == nil || candidate.RecipientID == "" || candidate.RecipientID == a.senderID {
		return false
	}

	existing, ok := a.byRecipient[candidate.RecipientID]
	if !ok {
		a.byRecipient[candidate.RecipientID] = candidate
		a.order = append(a.order, candidate)
		return true
	}

	if precedence[candidate.Type] <= precedence[existing.Type] {
		return false
	}
	existing.Type = candidate.Type
	existing.Title = candidate.Title
	return true
}

func (a *Accumulator) MergeAll(candidates []*Notification) {
	for _, c := range candidates {
		a.Merge(c)
	}
}

func (a *Accumulator) Has(recipientID string) bool {
	_, ok := a.byRecipient[recipientID]
	return ok
}

func (a *Accumulator) Get(recipientID string) (*Notification, bool) {
	n, ok := a.byRecipient[recipientID]
	return n, ok
}

func (a *Accumulator) Len() int {
	return len(a.order)
}

// Notifications returns the accumulated entries in first-appearance order.
func (a *Accumulator) Notifications() []*Notification {
	out := make([]*Notification, len(a.order))
	copy(out, a.order)
	return out
}
