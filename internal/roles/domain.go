package roles

// Role groups users sharing the same permissions.
type Role struct {
	ID          int64
	Name        string
	Description string
}
