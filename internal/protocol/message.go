package protocol

import "strconv"

// Message is one application-level payload exchanged between two peers.
//
// ID is zero until the sending session assigns a monotonic identifier;
// replies echo the identifier of the message they answer instead of
// receiving a fresh one.
type Message struct {
	ID   uint64
	Kind string
	Body []byte
}

// Tag returns the correlation key used to match a reply to its request.
// The key is the decimal string form of the identifier so that transports
// carrying non-integer identifiers can still correlate.
func (m Message) Tag() string {
	return strconv.FormatUint(m.ID, 10)
}

// Assigned reports whether the message already carries an identifier.
func (m Message) Assigned() bool {
	return m.ID != 0
}
