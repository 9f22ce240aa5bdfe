package alarm

import (
	"hash/fnv"
	"time"
)

// Kind distinguishes the two timers a schedule can hold.
type Kind int

const (
	KindConnect Kind = iota
	KindDisconnect
)

func (k Kind) String() string {
	if k == KindDisconnect {
		return "disconnect"
	}
	return "connect"
}

// disconnectOffset shifts disconnect codes into their own range so the
// two kinds can never collide for the same schedule id.
const disconnectOffset = int64(1) << 32

// Code derives the stable timer identifier for a (kind, schedule id)
// pair. Re-arming the same pair produces the same code, which replaces
// the pending timer instead of duplicating it. Connect codes occupy
// [0, 1<<32), disconnect codes [1<<32, 2<<32).
func Code(kind Kind, scheduleID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(scheduleID))
	code := int64(h.Sum32())
	if kind == KindDisconnect {
		code += disconnectOffset
	}
	return code
}

// Registration is the durable record of one armed timer. Persisting
// registrations lets a restarted daemon re-arm everything it had pending.
type Registration struct {
	Code       int64  `json:"code"`
	Kind       Kind   `json:"kind"`
	ScheduleID string `json:"schedule_id"`
	At         int64  `json:"at"` // ms since epoch, UTC
}

// Time returns the registration's fire instant as a UTC time.
func (r Registration) Time() time.Time {
	return time.UnixMilli(r.At).UTC()
}

// RegistrationStore persists armed registrations across restarts.
// Implementations must tolerate Delete for an unknown code.
type RegistrationStore interface {
	PutRegistration(Registration) error
	DeleteRegistration(code int64) error
	Registrations() ([]Registration, error)
}
