package session

import "strings"

const (
	LoginRoute = "/login"
	HomeRoute  = "/(tabs)/home"

	protectedGroup = "(tabs)"
)

// Redirect decides where the app should go when snap is current and the user
// is on route. Routes under the (tabs) group need a session; every other route
// is an auth screen. No redirect happens while a request is in flight.
func Redirect(snap Snapshot, route string) (string, bool) {
	if snap.State == Loading {
		return "", false
	}

	protected := firstSegment(route) == protectedGroup
	switch {
	case protected && !snap.Authenticated():
		return LoginRoute, true
	case !protected && snap.Authenticated():
		return HomeRoute, true
	default:
		return "", false
	}
}

func firstSegment(route string) string {
	segment, _, _ := strings.Cut(strings.TrimPrefix(route, "/"), "/")
	return segment
}
