package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"filetasks/internal/fsutil"
	"filetasks/internal/task"
)

// candidate is a file that passed the cheap checks and is ready for a
// content scan.
type candidate struct {
	result Result
}

// scanOutcome pairs a candidate with its scan result.
type scanOutcome struct {
	match *lineMatch
	err   error
}

// scanCandidates runs content scans in sub-batches of scanBatchSize
// concurrent files and appends one ContentResult per matching file.
// It returns true once maxResults is reached.
func (s *Searcher) scanCandidates(kind task.Kind, cands []candidate, q Query, opID string,
	maxResults int, results *[]ContentResult) (bool, error) {

	for start := 0; start < len(cands); start += scanBatchSize {
		if err := s.Registry.Check(opID); err != nil {
			return false, err
		}
		end := start + scanBatchSize
		if end > len(cands) {
			end = len(cands)
		}
		group := cands[start:end]

		outcomes := make([]scanOutcome, len(group))
		var wg sync.WaitGroup
		for i, c := range group {
			wg.Add(1)
			go func(i int, c candidate) {
				defer wg.Done()
				m, err := s.scanFile(c.result.Path, c.result.Size, q, opID)
				outcomes[i] = scanOutcome{match: m, err: err}
			}(i, c)
		}
		wg.Wait()

		var batch []ContentResult
		for i, out := range outcomes {
			if out.err != nil {
				return false, out.err
			}
			if out.match == nil {
				continue
			}
			batch = append(batch, ContentResult{
				Result:          group[i].result,
				MatchContext:    out.match.context,
				MatchLineNumber: out.match.line,
			})
		}
		if len(batch) == 0 {
			continue
		}

		*results = append(*results, batch...)
		s.Emitter.Emit(kind, opID, map[string]any{
			"results": batch,
			"found":   len(*results),
		})
		if len(*results) >= maxResults {
			*results = (*results)[:maxResults]
			return true, nil
		}
	}
	return false, nil
}

// collectCandidates stats a directory's files in batches of
// statBatchSize and keeps the ones eligible for scanning: text
// extension, size cap, shared filters, not system-protected.
func (s *Searcher) collectCandidates(dir string, files []fs.DirEntry,
	filters fsutil.Compiled, opID string) ([]candidate, error) {

	var cands []candidate
	for start := 0; start < len(files); start += statBatchSize {
		if err := s.Registry.Check(opID); err != nil {
			return nil, err
		}
		end := start + statBatchSize
		if end > len(files) {
			end = len(files)
		}

		var winners []statted
		for _, st := range statBatch(dir, files[start:end]) {
			if st.info == nil || st.info.IsDir() {
				continue
			}
			if st.info.Size() > maxScanFileSize {
				continue
			}
			if !filters.Match(st.name, false, st.info.Size(), st.info.ModTime()) {
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

		for i, w := range winners {
			if attrs[i].SystemProtected {
				continue
			}
			cands = append(cands, candidate{result: Result{
				Name:     w.name,
				Path:     w.path,
				IsFile:   true,
				Size:     w.info.Size(),
				Modified: w.info.ModTime(),
				IsHidden: attrs[i].Hidden,
			}})
		}
	}
	return cands, nil
}

// Content searches file contents under a root on the live filesystem.
// Only text-extension files no larger than maxScanFileSize are opened;
// scanning stops at the first match per file.
func (s *Searcher) Content(opts ContentOptions, opID string) ([]ContentResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	q := CompileQuery(opts.Query, opts.UseRegex)
	if !q.Valid() {
		return []ContentResult{}, nil
	}
	filters := opts.Filters.Compile()
	log := s.logger()

	results := make([]ContentResult, 0, 32)
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

		var files []fs.DirEntry
		for _, de := range dirEntries {
			if de.IsDir() {
				if frame.depth+1 < opts.MaxDepth {
					stack = append(stack, dirFrame{
						path:  filepath.Join(frame.path, de.Name()),
						depth: frame.depth + 1,
					})
				}
				continue
			}
			if fsutil.IsTextCandidate(de.Name()) {
				files = append(files, de)
			}
		}

		cands, err := s.collectCandidates(frame.path, files, filters, opID)
		if err != nil {
			return nil, err
		}
		done, err := s.scanCandidates(task.KindSearchContent, cands, q, opID, opts.MaxResults, &results)
		if err != nil {
			return nil, err
		}
		if done {
			return results, nil
		}
	}
	return results, nil
}

// ContentList applies the content-scan machinery to a caller-supplied
// candidate list instead of a traversal or an index.
func (s *Searcher) ContentList(opts ContentListOptions, opID string) ([]ContentResult, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	q := CompileQuery(opts.Query, opts.UseRegex)
	if !q.Valid() {
		return []ContentResult{}, nil
	}
	filters := opts.Filters.Compile()

	results := make([]ContentResult, 0, 32)

	for start := 0; start < len(opts.Paths); start += statBatchSize {
		if err := s.Registry.Check(opID); err != nil {
			return nil, err
		}
		end := start + statBatchSize
		if end > len(opts.Paths) {
			end = len(opts.Paths)
		}
		group := opts.Paths[start:end]

		infos := make([]os.FileInfo, len(group))
		var wg sync.WaitGroup
		for i, p := range group {
			wg.Add(1)
			go func(i int, p string) {
				defer wg.Done()
				if info, err := os.Stat(p); err == nil {
					infos[i] = info
				}
			}(i, p)
		}
		wg.Wait()

		var winners []statted
		for i, p := range group {
			info := infos[i]
			if info == nil || info.IsDir() {
				continue
			}
			if !fsutil.IsTextCandidate(p) || info.Size() > maxScanFileSize {
				continue
			}
			if !filters.Match(filepath.Base(p), false, info.Size(), info.ModTime()) {
				continue
			}
			winners = append(winners, statted{name: filepath.Base(p), path: p, info: info})
		}
		if len(winners) == 0 {
			continue
		}

		paths := make([]string, len(winners))
		for i, w := range winners {
			paths[i] = w.path
		}
		attrs := s.Hidden.ResolveBatch(paths)

		cands := make([]candidate, 0, len(winners))
		for i, w := range winners {
			if attrs[i].SystemProtected {
				continue
			}
			cands = append(cands, candidate{result: Result{
				Name:     w.name,
				Path:     w.path,
				IsFile:   true,
				Size:     w.info.Size(),
				Modified: w.info.ModTime(),
				IsHidden: attrs[i].Hidden,
			}})
		}

		done, err := s.scanCandidates(task.KindSearchContentList, cands, q, opID, opts.MaxResults, &results)
		if err != nil {
			return nil, err
		}
		if done {
			return results, nil
		}
	}
	return results, nil
}
