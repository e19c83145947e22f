package model

import "time"

// Collection names mirror the remote database layout of the dashboard.
const (
	CollectionStudents              = "students"
	CollectionFaculty               = "faculty"
	CollectionParents               = "parents"
	CollectionAttendance            = "attendance"
	CollectionFees                  = "fees"
	CollectionResults               = "results"
	CollectionAnnouncements         = "announcements"
	CollectionAssignments           = "assignments"
	CollectionAssignmentSubmissions = "assignment_submissions"
	CollectionMessages              = "messages"
	CollectionNotifications         = "notifications"
)

// Collections enumerates every known collection.
var Collections = []string{
	CollectionStudents,
	CollectionFaculty,
	CollectionParents,
	CollectionAttendance,
	CollectionFees,
	CollectionResults,
	CollectionAnnouncements,
	CollectionAssignments,
	CollectionAssignmentSubmissions,
	CollectionMessages,
	CollectionNotifications,
}

// KnownCollection reports whether the name is one of the dashboard's
// collections.
func KnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Record is a schemaless document. The "id" field is reserved and holds the
// document's opaque identifier.
type Record map[string]interface{}

// ID returns the document identifier, or "" if unset.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the string value of a field, or "" when absent or not a string.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Time parses a field persisted as RFC3339 (the docstore's timestamp format).
// Returns the zero time when the field is absent or malformed.
func (r Record) Time(key string) time.Time {
	s := r.String(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a shallow copy. Caches hand out clones so widgets cannot
// mutate coordinator-owned state.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// orderFields maps each collection to the timestamp field that defines its
// natural most-recent-first order.
var orderFields = map[string]string{
	CollectionFees:                  "createdAt",
	CollectionMessages:              "sentAt",
	CollectionResults:               "publishedAt",
	CollectionAssignments:           "createdAt",
	CollectionAssignmentSubmissions: "submittedAt",
	CollectionAttendance:            "timestamp",
	CollectionAnnouncements:         "createdAt",
	CollectionNotifications:         "createdAt",
}

// OrderField returns the field a collection is sorted by. Defaults to
// "createdAt" for collections without a dedicated timestamp.
func OrderField(collection string) string {
	if f, ok := orderFields[collection]; ok {
		return f
	}
	return "createdAt"
}

// ChangeType tags a change delivered by a subscription snapshot.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one entity-level delta inside a snapshot.
type Change struct {
	Type   ChangeType `json:"type"`
	Record Record     `json:"record"`
}

// Snapshot is the full change set delivered by one subscription invocation.
// Changes for the same entity are causally ordered; changes for different
// entities carry no ordering guarantee.
type Snapshot []Change
