package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/stockmaster/internal/pkg/config"
)

// maintenanceRules holds the paths closed for maintenance. An entry ending in
// "/*" closes every route below it; a lone "*" closes everything.
type maintenanceRules struct {
	all        bool
	exact      map[string]struct{}
	prefixes   []string
	retryAfter string
}

func newMaintenanceRules(cfg config.Config) maintenanceRules {
	rules := maintenanceRules{exact: map[string]struct{}{}}
	if cfg == nil {
		return rules
	}

	for _, entry := range cfg.GetArray("app.maintenance.endpoints") {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case entry == "*":
			rules.all = true
		case strings.HasSuffix(entry, "/*"):
			rules.prefixes = append(rules.prefixes, strings.TrimSuffix(entry, "*"))
		default:
			rules.exact[entry] = struct{}{}
		}
	}
	if secs := cfg.GetInt("app.maintenance.retry_after_seconds"); secs > 0 {
		rules.retryAfter = strconv.Itoa(secs)
	}

	return rules
}

func (m maintenanceRules) closed(path string) bool {
	if m.all {
		return true
	}
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func middlewareMaintenance(cfg config.Config) Middleware {
	rules := newMaintenanceRules(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rules.closed(matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			if rules.retryAfter != "" {
				w.Header().Set("Retry-After", rules.retryAfter)
			}
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
