package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"filetasks/internal/task"
)

// statted is one entry of a stat batch. A nil info means the stat
// failed and the entry is dropped.
type statted struct {
	name string
	path string
	info os.FileInfo
}

// statBatch resolves metadata for a batch of directory entries
// concurrently. The batch boundary is the backpressure point: no more
// than one batch of stats is ever in flight.
func statBatch(dir string, entries []fs.DirEntry) []statted {
	out := make([]statted, len(entries))
	var wg sync.WaitGroup
	for i, de := range entries {
		wg.Add(1)
		go func(i int, de fs.DirEntry) {
			defer wg.Done()
			path := filepath.Join(dir, de.Name())
			info, err := de.Info()
			if err != nil {
				out[i] = statted{name: de.Name(), path: path}
				return
			}
			out[i] = statted{name: de.Name(), path: path, info: info}
		}(i, de)
	}
	wg.Wait()
	return out
}

// Names searches the live filesystem by file name: an iterative stack
// traversal, name matching per directory, then batched metadata and
// hidden-attribute resolution for the matches. System-protected
// entries never appear in results.
func (s *Searcher) Names(opts NameOptions, opID string) ([]Result, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	q := CompileQuery(opts.Query, opts.UseRegex)
	if !q.Valid() {
		return []Result{}, nil
	}
	filters := opts.Filters.Compile()
	log := s.logger()

	results := make([]Result, 0, 64)
	stack := []dirFrame{{path: opts.Root, depth: 0}}

	for len(stack) > 0 {
		if err := s.Registry.Check(opID); err != nil {
			return nil, err
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirEntries, err := os.ReadDir(frame.path)
		if err != nil {
			log.Debug("unreadable directory skipped", zap.String("path", frame.path))
			continue
		}

		var matched []fs.DirEntry
		for _, de := range dirEntries {
			if de.IsDir() && frame.depth+1 < opts.MaxDepth {
				stack = append(stack, dirFrame{
					path:  filepath.Join(frame.path, de.Name()),
					depth: frame.depth + 1,
				})
			}
			if q.MatchName(de.Name()) {
				matched = append(matched, de)
			}
		}

		for start := 0; start < len(matched); start += statBatchSize {
			if err := s.Registry.Check(opID); err != nil {
				return nil, err
			}
			end := start + statBatchSize
			if end > len(matched) {
				end = len(matched)
			}

			var winners []statted
			for _, st := range statBatch(frame.path, matched[start:end]) {
				if st.info == nil {
					continue
				}
				if !filters.Match(st.name, st.info.IsDir(), st.info.Size(), st.info.ModTime()) {
					continue
				}
				winners = append(winners, st)
			}
			if len(winners) == 0 {
				continue
			}

			paths := make([]string, len(winners))
			for i, w := range winners {
				paths[i] = w.path
			}
			attrs := s.Hidden.ResolveBatch(paths)

			batch := make([]Result, 0, len(winners))
			for i, w := range winners {
				if attrs[i].SystemProtected {
					continue
				}
				batch = append(batch, Result{
					Name:        w.name,
					Path:        w.path,
					IsDirectory: w.info.IsDir(),
					IsFile:      !w.info.IsDir(),
					Size:        w.info.Size(),
					Modified:    w.info.ModTime(),
					IsHidden:    attrs[i].Hidden,
				})
			}
			if len(batch) == 0 {
				continue
			}
			results = append(results, batch...)
			s.Emitter.Emit(task.KindSearchFiles, opID, map[string]any{
				"results": batch,
				"found":   len(results),
			})

			if len(results) >= opts.MaxResults {
				return results[:opts.MaxResults], nil
			}
		}
	}
	return results, nil
}
