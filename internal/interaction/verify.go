package interaction

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// MaxBodyBytes caps the size of an inbound webhook body. Larger payloads are
// rejected before any cryptographic work happens.
const MaxBodyBytes = 100_000

var (
	ErrMissingSignatureHeaders = errors.New("missing signature headers")
	ErrBodyTooLarge            = errors.New("request body exceeds maximum size")
	ErrInvalidSignature        = errors.New("invalid request signature")
)

// Verifier authenticates inbound webhook requests against the application's
// Ed25519 public key. Verification runs over the exact wire bytes; callers
// must not parse the body before it has passed here.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses a hex-encoded Ed25519 public key into a Verifier.
func NewVerifier(hexKey string) (*Verifier, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSignature, len(key), ed25519.PublicKeySize)
	}

	return &Verifier{key: ed25519.PublicKey(key)}, nil
}

// Verify checks the claimed signature and timestamp against the raw body
// bytes. A nil return means the request genuinely originated from Discord.
// The body length check here is authoritative; the Content-Length precheck at
// the HTTP layer is only a cheap fast-reject since that header is spoofable.
func (v *Verifier) Verify(signature, timestamp string, body []byte) error {
	if signature == "" || timestamp == "" {
		return ErrMissingSignatureHeaders
	}

	if len(body) > MaxBodyBytes {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature: %w", ErrInvalidSignature, err)
	}

	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: got %d signature bytes, want %d", ErrInvalidSignature, len(sig), ed25519.SignatureSize)
	}

	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)

	if !ed25519.Verify(v.key, message, sig) {
		return ErrInvalidSignature
	}

	return nil
}
