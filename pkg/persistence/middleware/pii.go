package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

// Mask replaces the value of every masked key.
const Mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of state keys
// matching the patterns before the run is persisted. Log snapshots and
// deltas are masked too.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, run *domain.Run) error {
	// The engine keeps using the caller's run; mask a copy.
	masked := run.Clone()
	maskMap(masked.State, m.patterns)
	for i := range masked.Log {
		maskMap(masked.Log[i].State, m.patterns)
		maskMap(masked.Log[i].Delta, m.patterns)
	}
	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, id string) (*domain.Run, error) {
	return m.next.Get(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func maskMap[M ~map[string]any](m M, patterns []*regexp.Regexp) {
	for k, v := range m {
		matched := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case domain.State:
			maskMap(sub, patterns)
		case []any:
			for _, item := range sub {
				if inner, ok := item.(map[string]any); ok {
					maskMap(inner, patterns)
				}
			}
		}
	}
}
