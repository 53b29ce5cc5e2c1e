// Package restore parses the x-amz-restore header S3 returns for archived objects.
//
// The header is a list of key="value" pairs, for example:
//
//	ongoing-request="false", expiry-date="Fri, 23 Dec 2012 00:00:00 GMT"
//
// Values may contain commas, so pairs are scanned rather than split.
package restore

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
)

const (
	keyOngoingRequest = "ongoing-request"
	keyExpiryDate     = "expiry-date"
)

// Status is the parsed restore state of an archived object.
type Status struct {
	// Ongoing is true while the restore request is still being processed
	Ongoing bool

	// Expiry is when the restored copy is removed. Nil while Ongoing.
	Expiry *time.Time
}

// Parse interprets an x-amz-restore header value.
// Any header that does not carry a usable ongoing-request flag, or a completed
// restore without a parseable expiry-date, yields errors.ErrMalformedResponse.
func Parse(header string) (*Status, error) {
	pairs, err := scanPairs(header)
	if err != nil {
		return nil, malformed(header, err.Error())
	}

	ongoing, ok := pairs[keyOngoingRequest]
	if !ok {
		return nil, malformed(header, "missing "+keyOngoingRequest)
	}

	switch strings.ToLower(ongoing) {
	case "true":
		return &Status{Ongoing: true}, nil
	case "false":
	default:
		return nil, malformed(header, fmt.Sprintf("%s must be true or false, got %q", keyOngoingRequest, ongoing))
	}

	rawExpiry, ok := pairs[keyExpiryDate]
	if !ok {
		return nil, malformed(header, "missing "+keyExpiryDate)
	}
	expiry, err := dateparse.ParseIn(rawExpiry, time.UTC)
	if err != nil {
		return nil, malformed(header, fmt.Sprintf("invalid %s: %v", keyExpiryDate, err))
	}
	expiry = expiry.UTC()

	return &Status{Expiry: &expiry}, nil
}

func malformed(header, msg string) error {
	return errors.NewError("parseRestore", errors.ErrMalformedResponse).
		WithMessage(fmt.Sprintf("x-amz-restore %q: %s", header, msg))
}

// scanPairs reads key="value" pairs separated by optional commas and whitespace.
// Keys are lowercased; a repeated key keeps its last value.
func scanPairs(s string) (map[string]string, error) {
	pairs := make(map[string]string)
	rest := s

	for {
		rest = strings.TrimLeft(rest, " \t,")
		if rest == "" {
			break
		}

		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("expected key=\"value\" at %q", rest)
		}
		key := strings.ToLower(strings.TrimSpace(rest[:eq]))
		if key == "" || strings.ContainsAny(key, " \t,\"") {
			return nil, fmt.Errorf("invalid key %q", rest[:eq])
		}

		rest = rest[eq+1:]
		if !strings.HasPrefix(rest, `"`) {
			return nil, fmt.Errorf("value for %s must be quoted", key)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("unterminated value for %s", key)
		}
		pairs[key] = rest[1 : end+1]
		rest = rest[end+2:]

		if rest != "" && !strings.ContainsAny(rest[:1], " \t,") {
			return nil, fmt.Errorf("unexpected %q after value for %s", rest[:1], key)
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("empty header")
	}
	return pairs, nil
}
