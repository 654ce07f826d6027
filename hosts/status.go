package hosts

// Code enumerates the liveness states a checked video can be in.
type Code int

const (
	// Ok means the video is still publicly playable.
	Ok Code = iota
	// NotFound means the video no longer exists on the host.
	NotFound
	// Private means the video exists but its owner made it private.
	Private
	// Removed means the upload was deleted, rejected or otherwise never
	// finished processing.
	Removed
	// BlockedEverywhere means a region restriction leaves no country
	// where the video can be played.
	BlockedEverywhere
	// RegionRestricted means the video plays only in some countries.
	RegionRestricted
	// CheckError means the liveness check itself failed.
	CheckError
)

// String returns the human-readable form used in reports and logs.
func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case NotFound:
		return "not found"
	case Private:
		return "private"
	case Removed:
		return "removed"
	case BlockedEverywhere:
		return "blocked everywhere"
	case RegionRestricted:
		return "region restricted"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the result of a liveness check. Detail is set only for codes
// that carry extra information (RegionRestricted, CheckError).
type Status struct {
	Code   Code
	Detail string
}

// Dead reports whether the status belongs in a dead-link report.
func (s Status) Dead() bool {
	return s.Code != Ok
}

// Label returns the explanatory text written next to a report entry.
// NotFound deliberately has no label: "no longer exists" needs no
// elaboration, and its absence is meaningful downstream.
func (s Status) Label() string {
	switch s.Code {
	case NotFound:
		return ""
	case RegionRestricted:
		return s.Detail
	case CheckError:
		if s.Detail != "" {
			return "error: " + s.Detail
		}
		return "error"
	default:
		return s.Code.String()
	}
}
