package lock

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LockInfo is written into the lock file so a waiting process can say who
// it is waiting for. Only Token is load-bearing: Release leaves the file
// alone when the token in it is not ours.
type LockInfo struct {
	User     string    `json:"user"`
	Hostname string    `json:"hostname"`
	Started  time.Time `json:"started"`
	PID      int       `json:"pid"`
	Device   string    `json:"device,omitempty"`
	Token    string    `json:"token"`
}

// NewLockInfo creates a LockInfo for the current process fetching from device.
func NewLockInfo(device string) *LockInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}

	return &LockInfo{
		User:     user,
		Hostname: hostname,
		Started:  time.Now(),
		PID:      os.Getpid(),
		Device:   device,
		Token:    uuid.NewString(),
	}
}

// Marshal serializes the LockInfo to JSON.
func (i *LockInfo) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// ParseLockInfo deserializes JSON data into a LockInfo.
func ParseLockInfo(data []byte) (*LockInfo, error) {
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// String returns a human-readable description of who holds the lock.
func (i *LockInfo) String() string {
	return i.User + "@" + i.Hostname + " (pid " + strconv.Itoa(i.PID) + ")"
}
