package tokenstorage

import "sync"

// In-memory registry of issued tokens. A restart invalidates every session,
// which is acceptable for this service: clients simply log in again.

var (
	mu     sync.RWMutex
	tokens = make(map[string]struct{})
)

func AddToken(token string) {
	mu.Lock()
	defer mu.Unlock()
	tokens[token] = struct{}{}
}

func RemoveToken(token string) {
	mu.Lock()
	defer mu.Unlock()
	delete(tokens, token)
}

func CheckToken(token string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := tokens[token]
	return ok
}
