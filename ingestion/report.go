package ingestion

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/papyrus-search/papyrus/core"
)

// AbandonedBatch identifies a batch that was given up on during the run.
type AbandonedBatch struct {
	SourcePath string
	Batch      int
	Sink       string
	ChunkIDs   []core.ChunkID
}

// FileStats is the per-file slice of the run report.
type FileStats struct {
	BatchesCommitted int
	BatchesAbandoned int
	ChunksInserted   int
}

// Report accumulates run statistics across concurrent file workers. The two
// sinks are counted separately because a batch can durably land in one while
// the other abandons it.
type Report struct {
	mu sync.Mutex

	FilesProcessed   int
	FilesFailed      int
	BatchesCommitted int

	// ChunksInserted counts chunks committed to both sinks; VectorChunks and
	// DocumentChunks count what each sink durably received on its own.
	ChunksInserted int
	VectorChunks   int
	DocumentChunks int

	CacheHits       int
	VectorsComputed int
	LinesSkipped    int

	Files     map[string]*FileStats
	Abandoned []AbandonedBatch
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{Files: make(map[string]*FileStats)}
}

// fileStats returns the stats slot for a source path. Caller holds the lock.
func (r *Report) fileStats(source string) *FileStats {
	fs, ok := r.Files[source]
	if !ok {
		fs = &FileStats{}
		r.Files[source] = fs
	}
	return fs
}

func (r *Report) addFile(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FilesProcessed++
	if failed {
		r.FilesFailed++
	}
}

// addBatchOutcome records what each sink durably received for one batch. The
// batch counts as committed only when both sinks did.
func (r *Report) addBatchOutcome(source string, chunks int, vectorOK, documentOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vectorOK {
		r.VectorChunks += chunks
	}
	if documentOK {
		r.DocumentChunks += chunks
	}
	if vectorOK && documentOK {
		r.BatchesCommitted++
		r.ChunksInserted += chunks
		fs := r.fileStats(source)
		fs.BatchesCommitted++
		fs.ChunksInserted += chunks
	}
}

func (r *Report) addAbandoned(b AbandonedBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Abandoned = append(r.Abandoned, b)
	r.fileStats(b.SourcePath).BatchesAbandoned++
}

func (r *Report) addCacheStats(hits, computed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CacheHits += hits
	r.VectorsComputed += computed
}

func (r *Report) addSkipped(lines int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LinesSkipped += lines
}

// AbandonedCount returns how many batches were abandoned.
func (r *Report) AbandonedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Abandoned)
}

// FileStatsFor returns a copy of the per-file stats for a source path.
func (r *Report) FileStatsFor(source string) FileStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fs, ok := r.Files[source]; ok {
		return *fs
	}
	return FileStats{}
}

// WriteSummary prints a human-readable run summary with aggregate, per-sink,
// and per-file counts.
func (r *Report) WriteSummary(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(w, "\nInsertion complete\n")
	fmt.Fprintf(w, "  Files processed:   %d (%d with failures)\n", r.FilesProcessed, r.FilesFailed)
	fmt.Fprintf(w, "  Batches committed: %d\n", r.BatchesCommitted)
	fmt.Fprintf(w, "  Chunks inserted:   %d (vector store %d, search index %d)\n",
		r.ChunksInserted, r.VectorChunks, r.DocumentChunks)
	fmt.Fprintf(w, "  Embedding cache:   %d hits, %d computed\n", r.CacheHits, r.VectorsComputed)
	if r.LinesSkipped > 0 {
		fmt.Fprintf(w, "  Malformed lines:   %d skipped\n", r.LinesSkipped)
	}

	if len(r.Files) > 0 {
		paths := make([]string, 0, len(r.Files))
		for path := range r.Files {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		fmt.Fprintf(w, "  Per file:\n")
		for _, path := range paths {
			fs := r.Files[path]
			fmt.Fprintf(w, "    %s: %d chunks in %d batches", path, fs.ChunksInserted, fs.BatchesCommitted)
			if fs.BatchesAbandoned > 0 {
				fmt.Fprintf(w, ", %d abandoned", fs.BatchesAbandoned)
			}
			fmt.Fprintln(w)
		}
	}

	if len(r.Abandoned) == 0 {
		return
	}

	abandoned := make([]AbandonedBatch, len(r.Abandoned))
	copy(abandoned, r.Abandoned)
	sort.Slice(abandoned, func(i, j int) bool {
		if abandoned[i].SourcePath != abandoned[j].SourcePath {
			return abandoned[i].SourcePath < abandoned[j].SourcePath
		}
		return abandoned[i].Batch < abandoned[j].Batch
	})

	fmt.Fprintf(w, "  Abandoned batches: %d\n", len(abandoned))
	for _, b := range abandoned {
		fmt.Fprintf(w, "    %s batch %d (%s, %d chunks)\n", b.SourcePath, b.Batch, b.Sink, len(b.ChunkIDs))
	}
}
