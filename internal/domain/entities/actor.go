package entities

// Actor is the authenticated caller as resolved by the layer above the core.
type Actor struct {
	ParticipantID string `validate:"required,max=128"`
	Role          Role   `validate:"required,oneof=STUDENT PARENT"`
	IsAdmin       bool
	Locale        string `validate:"omitempty,bcp47_language_tag"`
}

// SystemActor is used for transitions driven by the sweeper.
var SystemActor = Actor{ParticipantID: "system", Role: RoleStudent, IsAdmin: true}

func (a Actor) Owns(s *Signup) bool {
	return a.ParticipantID == s.ParticipantID
}
