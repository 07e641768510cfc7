package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// NewTestDSN generates a DSN for an in-memory SQLite database for testing purposes.
// The random suffix keeps tests that reuse a name from sharing a database.
func NewTestDSN(testName string) string {
	return fmt.Sprintf("file:%s-%s?mode=memory&cache=shared", testName, uuid.NewString())
}
