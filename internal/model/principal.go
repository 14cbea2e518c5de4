package model

type Principal struct {
	UserID string
	Role   string
}

func (p Principal) IsAdmin() bool    { return p.Role == "admin" }
func (p Principal) IsOperator() bool { return p.Role == "operator" }
func (p Principal) IsViewer() bool   { return p.Role == "viewer" }

// CanMutate reports whether the principal may trigger passes that write to
// the store. Viewers may only read reports.
func (p Principal) CanMutate() bool {
	return p.IsAdmin() || p.IsOperator()
}
