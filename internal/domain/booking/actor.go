package booking

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	UserID string
}

// System is the actor used for clock-driven and collaborator-driven transitions.
var System = Actor{UserID: "system"}

func (a Actor) ActorString() string {
	if a.UserID == System.UserID {
		return "system"
	}
	return "user:" + a.UserID
}

// IsSystem reports whether the actor is the internal system actor.
func (a Actor) IsSystem() bool {
	return a.UserID == System.UserID
}
