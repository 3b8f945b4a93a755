package core

// Frame is one serialized event on its way to a client.
type Frame []byte

// SessionID identifies one live connection. It doubles as the user id of
// the participant the connection speaks for.
type SessionID string

// SignalConnection abstracts the messaging transport of one session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
