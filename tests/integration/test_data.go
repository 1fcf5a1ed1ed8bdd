//go:build integration

package integration

import (
	"fmt"
	"time"
)

const TestPassword = "TestPassword123!"

// TestUser generates unique test credentials using a timestamp
func TestUser(suffix string) (username, email string) {
	ts := time.Now().UnixNano()
	return fmt.Sprintf("lifter-%d-%s", ts, suffix), fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
}
