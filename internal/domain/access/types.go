package access

type AccessState string

const (
	AccessTrial   AccessState = "trial"
	AccessFull    AccessState = "full"
	AccessLimited AccessState = "limited"
	AccessLocked  AccessState = "locked"
)

// CanWrite reports whether the state allows creating content (profiles, plans).
func (s AccessState) CanWrite() bool {
	return s == AccessTrial || s == AccessFull
}
