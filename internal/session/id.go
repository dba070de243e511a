package session

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSessionID builds a session identifier from a timestamp suffix, a
// random part, and a short checksum. The checksum lets join endpoints
// reject mistyped IDs without a database round trip.
func NewSessionID(now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}

	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]

	sum := md5.Sum([]byte(ts + random))
	checksum := strings.ToUpper(hex.EncodeToString(sum[:]))[:3]

	return ts + random + checksum
}

// ValidSessionID verifies the embedded checksum.
func ValidSessionID(id string) bool {
	if len(id) != 17 {
		return false
	}
	sum := md5.Sum([]byte(id[:14]))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:3] == id[14:]
}

// NewStudentToken mints the secret a learner presents on every chat call.
func NewStudentToken() string {
	return uuid.NewString()
}
