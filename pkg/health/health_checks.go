package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

// DefaultPingTimeout bounds StoreCheck pings
const DefaultPingTimeout = 2 * time.Second

// CatalogCheck reports unhealthy when a required reference database is
// missing and degraded when one is empty
func CatalogCheck(c *storage.Catalog, required ...string) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "catalog",
			Status:  StatusHealthy,
			Details: make(map[string]any),
		}

		var missing, empty []string
		for _, name := range required {
			db, err := c.Database(name)
			if err != nil {
				missing = append(missing, name)
				continue
			}
			check.Details[name] = db.Len()
			if db.Len() == 0 {
				empty = append(empty, name)
			}
		}

		switch {
		case len(missing) > 0:
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("missing reference databases: %v", missing)
		case len(empty) > 0:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("empty reference databases: %v", empty)
		default:
			check.Message = fmt.Sprintf("%d reference databases loaded", len(required))
		}
		return check
	}
}

// LinkingCheck reports degraded while exchanges are left unlinked
func LinkingCheck(l *linker.Linker) CheckFunc {
	return func(ctx context.Context) Check {
		stats := l.Statistics()
		check := Check{
			Name:   "linking",
			Status: StatusHealthy,
			Details: map[string]any{
				"nodes":    stats.Nodes,
				"edges":    stats.Edges,
				"unlinked": stats.Unlinked,
			},
		}
		if !stats.Complete() {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d exchanges unlinked", stats.Unlinked, stats.Edges)
		} else {
			check.Message = "All exchanges linked"
		}
		return check
	}
}

// StoreCheck pings an external store
func StoreCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name: name,
		}

		ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// MemoryCheck reports degraded when heap allocation exceeds limit bytes
func MemoryCheck(limit uint64) CheckFunc {
	return func(ctx context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
			},
		}
		if limit > 0 && m.Alloc > limit {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
