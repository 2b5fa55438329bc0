// Package compute implements the folder-size and checksum tasks.
package compute

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"filetasks/internal/task"
)

const (
	// statBatchSize bounds concurrent stat calls while summing a
	// directory.
	statBatchSize = 50

	// progressInterval gates progress emission by wall-clock time, not
	// per item, so huge trees do not flood the channel.
	progressInterval = 200 * time.Millisecond
)

// Calculator runs the compute tasks against shared engine state.
type Calculator struct {
	Registry *task.Registry
	Emitter  *task.Emitter
	Log      *zap.Logger
}

// SizeOptions configures a folder-size computation.
type SizeOptions struct {
	Path string `json:"path"`
}

// SizeProgress is the payload of folder-size progress messages.
type SizeProgress struct {
	CalculatedSize int64  `json:"calculatedSize"`
	FileCount      int    `json:"fileCount"`
	FolderCount    int    `json:"folderCount"`
	CurrentPath    string `json:"currentPath"`
}

// SizeResult is the final folder-size tally. Unreadable entries count
// as zero; partial results are not an error.
type SizeResult struct {
	Size        int64 `json:"size"`
	FileCount   int   `json:"fileCount"`
	FolderCount int   `json:"folderCount"`
}

// FolderSize sums file sizes across a subtree, statting directory
// entries in bounded concurrent batches.
func (c *Calculator) FolderSize(opts SizeOptions, opID string) (SizeResult, error) {
	var res SizeResult
	lastEmit := time.Now()

	stack := []string{opts.Path}
	for len(stack) > 0 {
		if err := c.Registry.Check(opID); err != nil {
			return SizeResult{}, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for start := 0; start < len(entries); start += statBatchSize {
			if err := c.Registry.Check(opID); err != nil {
				return SizeResult{}, err
			}
			end := start + statBatchSize
			if end > len(entries) {
				end = len(entries)
			}
			group := entries[start:end]

			sizes := make([]int64, len(group))
			var wg sync.WaitGroup
			for i, de := range group {
				if de.IsDir() || de.Type()&fs.ModeSymlink != 0 {
					continue
				}
				wg.Add(1)
				go func(i int, de fs.DirEntry) {
					defer wg.Done()
					if info, err := de.Info(); err == nil {
						sizes[i] = info.Size()
					}
				}(i, de)
			}
			wg.Wait()

			for i, de := range group {
				if de.IsDir() {
					res.FolderCount++
					stack = append(stack, filepath.Join(dir, de.Name()))
					continue
				}
				if de.Type()&fs.ModeSymlink != 0 {
					continue
				}
				res.FileCount++
				res.Size += sizes[i]
			}
		}

		if opID != "" && time.Since(lastEmit) >= progressInterval {
			c.Emitter.Emit(task.KindFolderSize, opID, SizeProgress{
				CalculatedSize: res.Size,
				FileCount:      res.FileCount,
				FolderCount:    res.FolderCount,
				CurrentPath:    dir,
			})
			lastEmit = time.Now()
		}
	}

	return res, nil
}
