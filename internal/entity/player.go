package entity

// Player is the durable identity behind a connection.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
