// Package session models the sign-in flow as a small state machine. Reduce
// is pure, the caller performs the returned effects.
package session

// State is where a client sits in the sign-in flow
type State string

const (
	StateSignedOut     State = "signed_out"
	StateNeedsUsername State = "needs_username"
	StateReady         State = "ready"
)

// Effect is a side effect the caller should perform after a transition
type Effect string

const (
	EffectPromptUsername Effect = "prompt_username"
	EffectNavigateHome   Effect = "navigate_home"
	EffectNavigateLogin  Effect = "navigate_login"
	EffectRevokeSession  Effect = "revoke_session"
)

type Session struct {
	State    State  `json:"state"`
	UID      string `json:"uid,omitempty"`
	Username string `json:"username,omitempty"`
}

type Event interface {
	event()
}

// AuthChanged reports the identity seen by the provider. An empty UID means nobody is signed in.
type AuthChanged struct {
	UID      string
	Username string
}

type UsernameSet struct {
	Username string
}

type SignedOut struct{}

// BackToLogin abandons the username prompt.
type BackToLogin struct{}

func (AuthChanged) event() {}
func (UsernameSet) event() {}
func (SignedOut) event()   {}
func (BackToLogin) event() {}

// Initial is the state before any identity is known.
func Initial() Session {
	return Session{State: StateSignedOut}
}

func Reduce(s Session, e Event) (Session, []Effect) {
	switch ev := e.(type) {
	case AuthChanged:
		if ev.UID == "" {
			if s.State == StateSignedOut {
				return Initial(), nil
			}
			return Initial(), []Effect{EffectNavigateLogin}
		}
		if ev.Username == "" {
			return Session{State: StateNeedsUsername, UID: ev.UID}, []Effect{EffectPromptUsername}
		}
		next := Session{State: StateReady, UID: ev.UID, Username: ev.Username}
		if s.State == StateReady {
			return next, nil
		}
		return next, []Effect{EffectNavigateHome}

	case UsernameSet:
		if s.State != StateNeedsUsername || ev.Username == "" {
			return s, nil
		}
		return Session{State: StateReady, UID: s.UID, Username: ev.Username}, []Effect{EffectNavigateHome}

	case SignedOut:
		if s.State == StateSignedOut {
			return s, nil
		}
		return Initial(), []Effect{EffectRevokeSession, EffectNavigateLogin}

	case BackToLogin:
		if s.State != StateNeedsUsername {
			return s, nil
		}
		return Initial(), []Effect{EffectRevokeSession, EffectNavigateLogin}
	}
	return s, nil
}
