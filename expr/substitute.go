package expr

import (
	"regexp"
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
)

var reRef = regexp.MustCompile(`%:(\??)([^%:]+):%`)

// Ref is one variable reference found in a text.
type Ref struct {
	Name     string
	Tolerant bool
}

// Refs lists the distinct variable references of text, in order of
// first appearance. Names compare case-insensitively.
func Refs(text string) []Ref {
	var refs []Ref
	seen := make(map[string]struct{})
	for _, m := range reRef.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[2])
		key := schema.VarKey(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, Ref{Name: name, Tolerant: m[1] == "?"})
	}
	return refs
}

// HasRefs reports whether text references any variable.
func HasRefs(text string) bool {
	return reRef.MatchString(text)
}

// Substitute replaces every %:NAME:% and %:?NAME:% in text with the
// value get returns for NAME. Tolerant references that cannot be
// resolved stay in place and are listed in the returned slice. Bare
// references that cannot be resolved make Substitute fail with
// UnresolvedReference.
func Substitute(text string, get Getter) (string, []string, error) {
	var unresolved []string
	var missing []string
	var fatal error

	out := reRef.ReplaceAllStringFunc(text, func(m string) string {
		if fatal != nil {
			return m
		}
		sub := reRef.FindStringSubmatch(m)
		tolerant := sub[1] == "?"
		name := strings.TrimSpace(sub[2])
		var v interface{}
		var err error
		if get != nil {
			v, err = get(name)
		} else {
			err = errors.ErrUnknownVariable
		}
		if errors.Is(err, errors.ErrDepthExceeded) {
			fatal = err
			return m
		}
		if err != nil || v == nil {
			if tolerant {
				unresolved = append(unresolved, name)
			} else {
				missing = append(missing, name)
			}
			return m
		}
		return schema.ToString(v)
	})
	if fatal != nil {
		return text, nil, fatal
	}
	if len(missing) > 0 {
		return out, unresolved, errors.New(errors.UnresolvedReference, "%s in %q", strings.Join(missing, ", "), text).WithVariable(missing[0])
	}
	return out, unresolved, nil
}
