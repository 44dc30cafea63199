package integration

import (
	"fmt"
	"sync/atomic"
	"time"
)

var userCounter int64

// TestCredentials generates unique test credentials. Usernames must be
// globally unique across tenants, so every call gets a fresh suffix.
func TestCredentials(suffix string) (username, password string) {
	n := atomic.AddInt64(&userCounter, 1)
	username = fmt.Sprintf("test-%d-%d-%s", time.Now().Unix(), n, suffix)
	password = "TestPassword123"
	return
}

// TestClientIP hands out a unique client address per call so each test
// scenario gets its own login rate-limit bucket.
var ipCounter int64

func TestClientIP() string {
	n := atomic.AddInt64(&ipCounter, 1)
	return fmt.Sprintf("10.1.%d.%d", (n/250)%250, n%250+1)
}
