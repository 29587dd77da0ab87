package interaction

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// tokenDelimiter separates segments of an action token. Display names may
// themselves contain this character, so they are base64url-encoded rather
// than split around.
const tokenDelimiter = "_"

var ErrMalformedToken = errors.New("malformed action token")

// EncodeToken builds a self-describing action token: the verb prefix, the
// target ID, and optionally a base64url-encoded display name. The token
// carries everything a later button click needs, so no server-side session
// state exists between the confirmation message and the click.
func EncodeToken(prefix, targetID, displayName string) string {
	token := prefix + targetID
	if displayName != "" {
		token += tokenDelimiter + base64.RawURLEncoding.EncodeToString([]byte(displayName))
	}

	return token
}

// DecodeToken splits an action token back into its target ID and decoded
// display name. The first delimiter-separated segment after the prefix is
// always the target ID; everything after the next delimiter is the encoded
// name, which may legitimately contain further delimiter characters.
func DecodeToken(token, prefix string) (targetID, displayName string, err error) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	targetID, encoded, found := strings.Cut(rest, tokenDelimiter)
	if targetID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	if !found || encoded == "" {
		return targetID, "", nil
	}

	name, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %w", ErrMalformedToken, token, err)
	}

	return targetID, string(name), nil
}
