package server

// Display is the subset of an X connection used by [SoftReset].
type Display interface {
	Root() uint32
	QueryTree(window uint32) ([]uint32, error)
	// Owns reports whether the resource belongs to this connection.
	Owns(id uint32) bool
	KillClient(resource uint32) error
	Sync() error
}

// SoftReset disconnects the client owning every top-level window other than
// those of d itself, without restarting the server. It returns the number of
// clients killed. Any error leaves the display in an unknown state.
func SoftReset(d Display) (int, error) {
	windows, err := d.QueryTree(d.Root())
	if err != nil {
		return 0, err
	}

	n := 0
	for _, w := range windows {
		if d.Owns(w) {
			continue
		}
		if err = d.KillClient(w); err != nil {
			return n, err
		}
		n++
	}
	return n, d.Sync()
}
