// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// RoleAdmin has access to every page.
const RoleAdmin = "Admin"

// Pages a session can be granted.
const (
	PageDashboard = "Dashboard"
	PageStock     = "Stock"
	PageSales     = "Sales"
	PageProduct   = "Product"
	PageCategory  = "Category"
)

// Session is the authenticated caller. It is passed explicitly through
// the request context rather than kept in process-wide state.
type Session struct {
	UserID string
	Email  string
	Role   string
	Access []string // pages a non-admin may open
}

type sessionKey struct{}

// WithSession adds Session to context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSession returns Session from context.
func GetSession(ctx context.Context) *Session {
	if v, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if s := GetSession(ctx); s != nil {
		return s.UserID
	}
	return ""
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// CanAccess checks if the session may open page.
func (s *Session) CanAccess(page string) bool {
	if s == nil {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	return slices.Contains(s.Access, page)
}
