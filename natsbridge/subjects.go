package natsbridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/swamp"
)

// ErrUnmappablePath is returned for paths that have no NATS subject.
var ErrUnmappablePath = errors.New("natsbridge: path cannot be mapped to a subject")

const subjectSeparator = "."

// SubjectFor maps an absolute path below prefix: "/a/b" becomes "prefix.a.b"
// and the root becomes prefix itself.
func SubjectFor(prefix string, path swamp.Path) (string, error) {
	if path.IsRoot() {
		return prefix, nil
	}
	p := path.String()
	if !strings.HasPrefix(p, swamp.Separator) {
		return "", fmt.Errorf("%w: %q is not absolute", ErrUnmappablePath, p)
	}

	segments := path.Split()[1:]
	for _, segment := range segments {
		if !validToken(segment) {
			return "", fmt.Errorf("%w: %q has segment %q", ErrUnmappablePath, p, segment)
		}
	}
	return prefix + subjectSeparator + strings.Join(segments, subjectSeparator), nil
}

// PathFor is the inverse of SubjectFor.
func PathFor(prefix, subject string) (swamp.Path, error) {
	if subject == prefix {
		return swamp.Root(), nil
	}
	rest, ok := strings.CutPrefix(subject, prefix+subjectSeparator)
	if !ok || rest == "" {
		return swamp.Path{}, fmt.Errorf("%w: subject %q is outside %q", ErrUnmappablePath, subject, prefix)
	}
	return swamp.NewPath(swamp.Separator + strings.ReplaceAll(rest, subjectSeparator, swamp.Separator)), nil
}

func validToken(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ".*> \t\r\n")
}
