package contentid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid indicates an inbound id that cannot be normalized.
var ErrInvalid = errors.New("invalid content identifier")

// ID is the normalized form of an inbound content identifier.
// Base is always the tt-prefixed IMDb id. Season and Episode are zero for
// movies and positive for series episodes; episode granularity is part of
// the identity because different episodes have different subtitles.
type ID struct {
	Base    string
	Season  int
	Episode int
}

// Parse normalizes a raw inbound identifier. Accepted forms:
//
//	tt0111161
//	0111161
//	tt0111161:1:2
//
// Ids that differ only in the tt prefix normalize identically.
func Parse(raw string) (ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ID{}, fmt.Errorf("%w: empty id", ErrInvalid)
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	digits := strings.TrimPrefix(strings.ToLower(parts[0]), "tt")
	if digits == "" || !isDigits(digits) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	id := ID{Base: "tt" + digits}
	if len(parts) == 3 {
		season, err := strconv.Atoi(parts[1])
		if err != nil || season <= 0 {
			return ID{}, fmt.Errorf("%w: bad season in %q", ErrInvalid, raw)
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil || episode <= 0 {
			return ID{}, fmt.Errorf("%w: bad episode in %q", ErrInvalid, raw)
		}
		id.Season = season
		id.Episode = episode
	}
	return id, nil
}

// IsSeries reports whether the id addresses a series episode.
func (id ID) IsSeries() bool {
	return id.Season > 0 && id.Episode > 0
}

// Key returns the canonical string form used as the cache key.
func (id ID) Key() string {
	if id.IsSeries() {
		return fmt.Sprintf("%s:%d:%d", id.Base, id.Season, id.Episode)
	}
	return id.Base
}

// Numeric returns the IMDb id without the tt prefix, the form the
// subtitle catalog expects.
func (id ID) Numeric() string {
	return strings.TrimPrefix(id.Base, "tt")
}

func (id ID) String() string {
	return id.Key()
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
