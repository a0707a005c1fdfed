package player

// Player is one known (non-anonymous) account.
type Player struct {
	AccountID   int64
	Name        string
	PersonaName string
}
