package pipeline

import "time"

// State tracks where a build stands. Failed is terminal: only a forced
// rebuild starts over.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateScanning      State = "scanning"
	StateChunking      State = "chunking"
	StateEmbedding     State = "embedding"
	StateIndexing      State = "indexing"
	StatePersisting    State = "persisting"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// BuildReport summarizes one BuildOrLoad run. Per-file and per-batch
// failures accumulate here instead of aborting the run, so a partially
// failed build still yields a queryable index and the caller can decide
// whether to retry.
type BuildReport struct {
	FilesScanned   int
	FilesSkipped   int
	ChunksCreated  int
	ChunksEmbedded int
	ChunksFailed   int
	FromCache      bool
	CacheSaved     bool
	Duration       time.Duration
}
