package service

import (
	"sync"
	"time"
)

// announcementLog remembers which maintenance windows were already announced
// so overlapping sweeps publish each window once. A rescheduled task gets a
// new key and is announced again.
type announcementLog struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newAnnouncementLog() *announcementLog {
	return &announcementLog{seen: make(map[string]time.Time)}
}

// claim records ticketID at start and reports whether it was new. Windows that
// opened before now are forgotten.
func (l *announcementLog) claim(ticketID string, start, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, at := range l.seen {
		if at.Before(now) {
			delete(l.seen, key)
		}
	}
	key := ticketID + "@" + start.UTC().Format(time.RFC3339)
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = start
	return true
}
