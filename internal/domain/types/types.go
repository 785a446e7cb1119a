// Package types contains the output contract shared by the service, the HTTP
// layer and the CLI.
package types

// ErrorCode distinguishes outcomes that are not a path answer.
type ErrorCode string

// Error codes.
const (
	ErrorPersonNotFound ErrorCode = "person_not_found"
	ErrorSamePerson     ErrorCode = "same_person"
	ErrorTimeout        ErrorCode = "timeout"
	ErrorUnavailable    ErrorCode = "unavailable"
	ErrorInvalidRequest ErrorCode = "invalid_request"
)

// Step is one narrated hop of a path.
type Step struct {
	FromPersonID   int64  `json:"fromPersonId"`
	FromPersonName string `json:"fromPersonName"`
	ToPersonID     int64  `json:"toPersonId"`
	ToPersonName   string `json:"toPersonName"`
	Kind           string `json:"kind"`
	VenueName      string `json:"venueName"`
	Period         string `json:"period"`
	Description    string `json:"description"`
}

// Diagnostics reports data problems the search recovered from.
type Diagnostics struct {
	SkippedEdges  int `json:"skippedEdges"`
	FailedLookups int `json:"failedLookups"`
	InvalidStints int `json:"invalidStints"`
}

// Result is the answer to one path request. Found false with an empty Error
// means no path exists within the depth limit. StartPerson and EndPerson are
// set whenever both ids resolved.
type Result struct {
	Found        bool         `json:"found"`
	Steps        []Step       `json:"steps"`
	TotalSteps   int          `json:"totalSteps"`
	SearchTimeMs int64        `json:"searchTimeMs"`
	Score        int          `json:"score"`
	StartPerson  *Person      `json:"startPerson,omitempty"`
	EndPerson    *Person      `json:"endPerson,omitempty"`
	Error        ErrorCode    `json:"error,omitempty"`
	Message      string       `json:"message,omitempty"`
	Diagnostics  *Diagnostics `json:"diagnostics,omitempty"`
}

// Failed builds a result for an outcome that is not a path answer.
func Failed(code ErrorCode, message string, elapsedMs int64) Result {
	return Result{
		Steps:        []Step{},
		SearchTimeMs: elapsedMs,
		Error:        code,
		Message:      message,
	}
}

// Person is the public view of a person.
type Person struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"fullName,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	Roles       []string `json:"roles"`
	Retired     bool     `json:"retired"`
}

// Stint is the public view of a stint.
type Stint struct {
	VenueID   int64  `json:"venueId"`
	VenueName string `json:"venueName"`
	VenueKind string `json:"venueKind"`
	Role      string `json:"role"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
}

// PersonDetail is a person with their stints.
type PersonDetail struct {
	Person
	Stints []Stint `json:"stints"`
}
