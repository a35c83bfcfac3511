package pipeline

import "sync"

// buildLocks serializes builds per repository identity across pipeline
// instances in this process. Builds for different identities proceed in
// parallel; two builds for the same identity would otherwise race on the
// cache store's atomic replace.
var buildLocks sync.Map // identity → *sync.Mutex

func identityLock(identity string) *sync.Mutex {
	mu, _ := buildLocks.LoadOrStore(identity, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
