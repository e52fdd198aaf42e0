package services

// Session identifies who a cart or checkout call acts for. It is resolved
// from the sid cookie by the HTTP layer and passed explicitly.
type Session struct {
	UserID string
	SID    string
}

func (s Session) Authenticated() bool { return s.UserID != "" }

func requireSession(s Session) error {
	if !s.Authenticated() {
		return fail(CodeUnauthenticated, nil)
	}
	return nil
}
