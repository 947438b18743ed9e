package order

import (
	"sort"
	"sync"
)

// productLocks — набор мьютексов по ID товара. Записи удаляются, когда на них никто не ждёт.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*productLock)}
}

// lock захватывает мьютексы всех ids в отсортированном порядке и возвращает функцию освобождения.
func (l *productLocks) lock(ids []string) func() {
	keys := uniqueSorted(ids)

	l.mu.Lock()
	held := make([]*productLock, 0, len(keys))
	for _, key := range keys {
		entry, ok := l.locks[key]
		if !ok {
			entry = &productLock{}
			l.locks[key] = entry
		}
		entry.refs++
		held = append(held, entry)
	}
	l.mu.Unlock()

	for _, entry := range held {
		entry.mu.Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		for i, key := range keys {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, key)
			}
		}
	}
}

// size возвращает число живых записей (используется в тестах).
func (l *productLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}
