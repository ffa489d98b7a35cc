package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
)

type actorCtxKey struct{}

// requireRoles builds middleware enforcing the role gate: the caller
// must present at least one of roles in X-Roles (comma list). X-API-Key is
// checked first if apiKey is configured; X-Actor is required on every
// protected route and stashed for handlers that record it (timeline actor,
// job actor).
func (s *Server) requireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if s.apiKey != "" && c.Request().Header.Get("X-API-Key") != s.apiKey {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing API key")
			}
			actor := c.Request().Header.Get("X-Actor")
			if actor == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "X-Actor header is required")
			}
			callerRoles := splitCSV(c.Request().Header.Get("X-Roles"))
			if len(allowed) > 0 {
				ok := false
				for _, r := range callerRoles {
					if _, found := allowed[r]; found {
						ok = true
						break
					}
				}
				if !ok {
					return echo.NewHTTPError(http.StatusForbidden, "caller's roles do not satisfy this route")
				}
			}
			c.Set("actor", actor)
			return next(c)
		}
	}
}

func actorFrom(c *echo.Context) string {
	if v, ok := c.Get("actor").(string); ok {
		return v
	}
	return "api-client"
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
