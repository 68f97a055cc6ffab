// Package lead holds the canonical lead record, the spreadsheet row normalizer
// and the transport-safe record encoding stored inside lead segments.
package lead

// Row is one raw spreadsheet row keyed by its header cell.
type Row map[string]string

// Record is a normalized lead keyed by canonical field name.
type Record map[string]string

// Canonical field names.
const (
	FieldName          = "name"
	FieldContactPerson = "contactPerson"
	FieldDesignation   = "designation"
	FieldPhone         = "phone"
	FieldWebsite       = "website"
	FieldLinkedIn      = "linkedin"
	FieldEmail         = "email"
	FieldLocation      = "location"
	FieldIndustry      = "industry"
	FieldSize          = "size"
	FieldSource        = "source"
	FieldNotes         = "notes"
	FieldStatus        = "status"

	FieldAssignedTo = "assignedTo"
	FieldAssignedBy = "assignedBy"
	FieldAssignedAt = "assignedAt"
)

// Lead statuses that carry a transition timestamp.
const (
	StatusHot       = "hot"
	StatusWarm      = "warm"
	StatusCold      = "cold"
	StatusCalled    = "called"
	StatusOnboarded = "onboarded"

	DefaultStatus = StatusCold
)

// statusTimestampFields maps a status to the field stamped when a record
// enters that status. Statuses outside this map get no timestamp.
var statusTimestampFields = map[string]string{
	StatusHot:       "hotAt",
	StatusWarm:      "warmAt",
	StatusCold:      "coldAt",
	StatusCalled:    "calledAt",
	StatusOnboarded: "onboardedAt",
}

// StatusTimestampField returns the timestamp field for status, if it has one.
func StatusTimestampField(status string) (string, bool) {
	f, ok := statusTimestampFields[status]
	return f, ok
}

// Name returns the record's required name field.
func (r Record) Name() string {
	return r[FieldName]
}

// Status returns the record's lower-cased status.
func (r Record) Status() string {
	return r[FieldStatus]
}
