package access

// Screen names a client destination.
type Screen string

const (
	ScreenSplash        Screen = "Splash"
	ScreenLogin         Screen = "Login"
	ScreenSignup        Screen = "Signup"
	ScreenMain          Screen = "Main"
	ScreenProfile       Screen = "Profile"
	ScreenNotifications Screen = "Notifications"

	ScreenDashboard Screen = "Dashboard"
	ScreenUsers     Screen = "Users"
	ScreenAdd       Screen = "Add"
	ScreenComplaint Screen = "Complaint"
	ScreenAssign    Screen = "Assign"
	ScreenExpense   Screen = "Expense"
)

// AuthState is the navigation gate. There are exactly two states.
type AuthState string

const (
	Unauthenticated AuthState = "unauthenticated"
	Authenticated   AuthState = "authenticated"
)

// Navigation is the screen set reachable in one AuthState.
type Navigation struct {
	State   AuthState `json:"state"`
	Screens []Screen  `json:"screens"`
	Tabs    []Screen  `json:"tabs,omitempty"`
}

var (
	publicScreens = []Screen{ScreenSplash, ScreenLogin, ScreenSignup}
	memberScreens = []Screen{ScreenMain, ScreenProfile, ScreenNotifications}
	mainTabs      = []Screen{ScreenDashboard, ScreenUsers, ScreenAdd, ScreenComplaint, ScreenAssign, ScreenExpense}
)

// SelectNavigation picks the screen set from session presence alone. Role
// gating happens inside the screens, not here.
func SelectNavigation(sessionPresent bool) Navigation {
	if sessionPresent {
		return Navigation{
			State:   Authenticated,
			Screens: append([]Screen(nil), memberScreens...),
			Tabs:    append([]Screen(nil), mainTabs...),
		}
	}
	return Navigation{
		State:   Unauthenticated,
		Screens: append([]Screen(nil), publicScreens...),
	}
}

// Transition returns the navigation after the session changes.
func (n Navigation) Transition(sessionPresent bool) Navigation {
	return SelectNavigation(sessionPresent)
}

// Reachable reports whether screen is part of this navigation, tabs included.
func (n Navigation) Reachable(screen Screen) bool {
	for _, s := range n.Screens {
		if s == screen {
			return true
		}
	}
	for _, s := range n.Tabs {
		if s == screen {
			return true
		}
	}
	return false
}

// ScreenAllowed is the content-level gate. Users and Assign render
// "Access Denied" for non-elevated roles; every other screen renders.
func ScreenAllowed(role Role, screen Screen) bool {
	switch screen {
	case ScreenUsers, ScreenAssign:
		return role.IsElevated()
	default:
		return true
	}
}
