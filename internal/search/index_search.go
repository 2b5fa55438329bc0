package search

import (
	"sort"
	"strings"
	"time"

	"filetasks/internal/fsutil"
	"filetasks/internal/index"
	"filetasks/internal/task"
)

// readIndex loads the document through the read cache. A missing index
// is ErrNotBuilt; a present but entry-less one is ErrEmpty — both
// distinct from "no matches" so the host can prompt for a rebuild.
func (s *Searcher) readIndex(path string) (*index.Document, error) {
	doc, err := s.IndexCache.Read(path, index.ErrNotBuilt)
	if err != nil {
		return nil, err
	}
	if len(doc.Index) == 0 {
		return nil, index.ErrEmpty
	}
	return doc, nil
}

// IndexNames searches a saved index by name. Exact-name matches sort
// first, the rest alphabetically.
func (s *Searcher) IndexNames(opts IndexOptions, opID string) ([]Result, error) {
	doc, err := s.readIndex(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	q := CompileQuery(opts.Query, opts.UseRegex)
	if !q.Valid() {
		return []Result{}, nil
	}
	filters := opts.Filters.Compile()

	var matches []index.Entry
	for i, e := range doc.Index {
		if i%statBatchSize == 0 {
			if err := s.Registry.Check(opID); err != nil {
				return nil, err
			}
		}
		if !q.MatchName(e.Meta.Name) {
			continue
		}
		modified := time.UnixMilli(e.Meta.Modified)
		if !filters.Match(e.Meta.Name, e.Meta.IsDirectory, e.Meta.Size, modified) {
			continue
		}
		matches = append(matches, e)
		if len(matches) >= opts.MaxResults {
			break
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ei, ej := q.ExactName(matches[i].Meta.Name), q.ExactName(matches[j].Meta.Name)
		if ei != ej {
			return ei
		}
		return strings.ToLower(matches[i].Meta.Name) < strings.ToLower(matches[j].Meta.Name)
	})

	paths := make([]string, len(matches))
	for i, e := range matches {
		paths[i] = e.Path
	}
	attrs := s.Hidden.ResolveBatch(paths)

	results := make([]Result, 0, len(matches))
	for i, e := range matches {
		if attrs[i].SystemProtected {
			continue
		}
		results = append(results, Result{
			Name:        e.Meta.Name,
			Path:        e.Path,
			IsDirectory: e.Meta.IsDirectory,
			IsFile:      e.Meta.IsFile,
			Size:        e.Meta.Size,
			Modified:    time.UnixMilli(e.Meta.Modified),
			IsHidden:    attrs[i].Hidden,
		})
	}
	s.Emitter.Emit(task.KindSearchIndex, opID, map[string]any{"found": len(results)})
	return results, nil
}

// IndexContent searches file contents using a saved index for
// candidate selection: file-ness, text extension and filters are
// re-validated from the stored metadata, then the scan runs against
// the path on disk.
func (s *Searcher) IndexContent(opts IndexOptions, opID string) ([]ContentResult, error) {
	doc, err := s.readIndex(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	q := CompileQuery(opts.Query, opts.UseRegex)
	if !q.Valid() {
		return []ContentResult{}, nil
	}
	filters := opts.Filters.Compile()

	results := make([]ContentResult, 0, 32)
	var batch []candidate

	flush := func() (bool, error) {
		if len(batch) == 0 {
			return false, nil
		}
		paths := make([]string, len(batch))
		for i, c := range batch {
			paths[i] = c.result.Path
		}
		attrs := s.Hidden.ResolveBatch(paths)
		scannable := make([]candidate, 0, len(batch))
		for i, c := range batch {
			if attrs[i].SystemProtected {
				continue
			}
			c.result.IsHidden = attrs[i].Hidden
			scannable = append(scannable, c)
		}
		batch = batch[:0]
		done, err := s.scanCandidates(task.KindSearchContentIndex, scannable, q, opID, opts.MaxResults, &results)
		return done, err
	}

	for i, e := range doc.Index {
		if i%statBatchSize == 0 {
			if err := s.Registry.Check(opID); err != nil {
				return nil, err
			}
		}
		if !e.Meta.IsFile || e.Meta.Size > maxScanFileSize {
			continue
		}
		if !fsutil.IsTextCandidate(e.Meta.Name) {
			continue
		}
		modified := time.UnixMilli(e.Meta.Modified)
		if !filters.Match(e.Meta.Name, false, e.Meta.Size, modified) {
			continue
		}

		batch = append(batch, candidate{result: Result{
			Name:     e.Meta.Name,
			Path:     e.Path,
			IsFile:   true,
			Size:     e.Meta.Size,
			Modified: modified,
		}})

		if len(batch) >= statBatchSize {
			done, err := flush()
			if err != nil {
				return nil, err
			}
			if done {
				return results, nil
			}
		}
	}

	if _, err := flush(); err != nil {
		return nil, err
	}
	return results, nil
}
