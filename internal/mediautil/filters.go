package mediautil

import "fmt"

// VideoFilterChain builds a comma-joined ffmpeg -vf filter chain.
type VideoFilterChain struct {
	filters []string
}

// NewVideoFilterChain creates a filter chain whose first filter is the
// mandatory frame-select for a scene starting at startFrame (spec
// §4.5: "a mandatory select=gte(n,<start>) is prepended").
func NewVideoFilterChain(startFrame uint64) *VideoFilterChain {
	return &VideoFilterChain{filters: []string{fmt.Sprintf("select=gte(n,%d)", startFrame)}}
}

// AddOperatorFilter appends an operator-supplied -vf string after the
// mandatory select filter.
func (c *VideoFilterChain) AddOperatorFilter(filter string) *VideoFilterChain {
	if filter != "" {
		c.filters = append(c.filters, filter)
	}
	return c
}

// Build joins the chain into a single -vf argument.
func (c *VideoFilterChain) Build() string {
	return joinComma(c.filters)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
