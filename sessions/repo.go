package sessions

// Store persists the single current session slot.
type Store interface {
	// Get returns nil when nothing is stored. Expired or unreadable data is
	// cleared before returning nil.
	Get() (*Stored, error)
	Set(session Session, user User) error
	Clear() error
}
