package room

// Broadcaster defines the interface for broadcasting messages to a game.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
}
