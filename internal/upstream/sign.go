package upstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Header names for the request signature pair attached to every signed call.
const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Sign produces the shared-secret signature for a server-to-server request.
// The signed message is the fixed-shape string "{timestamp}:{actorId}:{actorName}"
// with empty strings substituted for absent fields, so the receiving side can
// reconstruct it unambiguously.
//
// The receiver's contract: reject timestamps more than 5 minutes old, allow up
// to 60 seconds of future clock skew, and compare signatures in constant time.
// This side only produces signatures, it never verifies its own.
func Sign(timestamp int64, actorID, actorName, secret string) string {
	message := fmt.Sprintf("%d:%s:%s", timestamp, actorID, actorName)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))

	return hex.EncodeToString(mac.Sum(nil))
}
