// Package ids generates the opaque identifiers used across the API.
// Question IDs carry a q_ prefix and response IDs an r_ prefix so the two
// can be told apart in logs and payloads.
package ids

import (
	"encoding/hex"

	"github.com/google/uuid"
)

const (
	questionPrefix = "q_"
	responsePrefix = "r_"

	// 12 hex characters of entropy, matching the wire format of existing IDs.
	suffixLength = 12
)

var newUUID = uuid.New

// NewQuestionID returns a fresh question identifier, e.g. "q_1a2b3c4d5e6f".
func NewQuestionID() string {
	return questionPrefix + randomSuffix()
}

// NewResponseID returns a fresh response identifier, e.g. "r_1a2b3c4d5e6f".
func NewResponseID() string {
	return responsePrefix + randomSuffix()
}

func randomSuffix() string {
	u := newUUID()
	return hex.EncodeToString(u[:])[:suffixLength]
}
