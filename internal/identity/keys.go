package identity

// Cookie names. Nothing outside this package reads or writes them.
const (
	keyAccessToken   = "access_token"
	keyRefreshToken  = "refresh_token"
	keyUserType      = "user_type"
	keyAttendeeID    = "attendee_id"
	keyAttendeeEmail = "attendee_email"
	keyAttendeeName  = "attendee_name"
	keyTempEmail     = "temp_email"
)

const userTypeAdmin = "admin"
