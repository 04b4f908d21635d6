package postgresadapter

import "time"

// SystemClock is the runtime clock used with the postgres store.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
