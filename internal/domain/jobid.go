package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	jobIDPrefix   = "job_"
	jobSuffixLen  = 9
	jobIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewJobID returns an id of the form job_<unix-ms>_<9 lowercase alnum>.
// The suffix is drawn from a random UUID so concurrent submissions in the
// same millisecond do not collide in practice.
func NewJobID(now time.Time) string {
	u := uuid.New()
	suffix := make([]byte, jobSuffixLen)
	for i := range suffix {
		suffix[i] = jobIDAlphabet[int(u[i])%len(jobIDAlphabet)]
	}
	return jobIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}
