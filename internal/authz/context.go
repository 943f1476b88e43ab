// Package authz builds the per-request authorization context and checks
// project privileges against it.
package authz

import (
	"context"
	"sort"
)

// Context is the caller's identity and project privileges for one
// request. It is never cached across requests.
type Context struct {
	username      string
	owned         []int64
	participating []int64
}

// NewContext copies and sorts the id sets.
func NewContext(username string, owned, participating []int64) *Context {
	return &Context{
		username:      username,
		owned:         sortedCopy(owned),
		participating: sortedCopy(participating),
	}
}

func sortedCopy(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Context) Username() string { return c.username }

// Owned returns the ids of projects the caller owns.
func (c *Context) Owned() []int64 { return sortedCopy(c.owned) }

// Participating returns the ids of projects the caller participates in.
func (c *Context) Participating() []int64 { return sortedCopy(c.participating) }

// Accessible returns owned and participating ids together, ascending.
func (c *Context) Accessible() []int64 {
	return sortedCopy(append(append([]int64{}, c.owned...), c.participating...))
}

// Check runs Check against this context's sets.
func (c *Context) Check(projectID int64, requireOwner bool) error {
	return Check(projectID, c.owned, c.participating, requireOwner)
}

type contextKey struct{}

// WithContext attaches the authorization context to ctx.
func WithContext(ctx context.Context, authCtx *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext returns the authorization context attached by RequireAuth.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
