package watcher

import "log/slog"

// Invalidator is the part of the lookup service the watcher drives
type Invalidator interface {
	Invalidate(path string) (int, error)
	ForgetMisses() (int, error)
}

// CacheHandler returns a ChangeHandler that drops cache entries for deleted
// or renamed paths and forgets remembered misses when anything is created.
func CacheHandler(inv Invalidator, logger *slog.Logger) ChangeHandler {
	return func(events []Event) {
		created := false
		removed := 0

		for _, ev := range events {
			switch ev.Type {
			case EventDelete, EventRename:
				n, err := inv.Invalidate(ev.Path)
				if err != nil {
					logger.Warn("Cache invalidation failed", "path", ev.Path, "error", err)
					continue
				}
				removed += n
			case EventCreate:
				created = true
			}
		}

		if created {
			if _, err := inv.ForgetMisses(); err != nil {
				logger.Warn("Failed to clear negative cache", "error", err)
			}
		}

		if removed > 0 || created {
			logger.Info("Cache updated from file changes",
				"events", len(events),
				"invalidated", removed,
				"created", created,
			)
		}
	}
}
