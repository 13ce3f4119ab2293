package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrBadIdentity is returned for strings that are not notification identities.
var ErrBadIdentity = errors.New("malformed notification identity")

// Identity names one occurrence. Its string form is
// "<schemeID>/<itemID>/<index>" with each id path-escaped.
type Identity struct {
	SchemeID string
	ItemID   string
	Index    int
}

func (id Identity) String() string {
	return url.PathEscape(id.SchemeID) + "/" + url.PathEscape(id.ItemID) + "/" + strconv.Itoa(id.Index)
}

// ParseIdentity inverts Identity.String.
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: %q", ErrBadIdentity, s)
	}
	scheme, err := url.PathUnescape(parts[0])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q: %v", ErrBadIdentity, s, err)
	}
	item, err := url.PathUnescape(parts[1])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q: %v", ErrBadIdentity, s, err)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 || item == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrBadIdentity, s)
	}
	return Identity{SchemeID: scheme, ItemID: item, Index: index}, nil
}
