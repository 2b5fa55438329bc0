package index

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"filetasks/internal/fsutil"
	"filetasks/internal/task"
)

// excludedDirNames are well-known system, cache and VCS directories
// never worth indexing, matched case-insensitively against any path
// segment.
var excludedDirNames = map[string]bool{
	".git": true, ".svn": true, ".hg": true, ".bzr": true,
	"node_modules": true, "__pycache__": true, ".venv": true,
	".npm": true, ".yarn": true, ".pnpm-store": true, ".gradle": true,
	".m2": true, ".cargo": true, ".rustup": true, ".cache": true,
	"$recycle.bin": true, "system volume information": true,
	".trash": true, ".trashes": true, ".fseventsd": true,
	".spotlight-v100": true, "windows": true, "program files": true,
	"program files (x86)": true, "programdata": true, "recovery": true,
	"proc": true, "sys": true, "dev": true,
}

// excludedFileNames are transient OS files matched by filename.
var excludedFileNames = map[string]bool{
	"pagefile.sys": true, "hiberfil.sys": true, "swapfile.sys": true,
	"thumbs.db": true, "desktop.ini": true, ".ds_store": true,
	".localized": true,
}

// DefaultMaxIndexSize bounds memory and wall-clock time on enormous
// subtrees.
const DefaultMaxIndexSize = 200000

const buildProgressInterval = 200 * time.Millisecond

// BuildOptions configures an index build.
type BuildOptions struct {
	Locations    []string `json:"locations"`
	SkipDirs     []string `json:"skipDirs,omitempty"`
	MaxIndexSize int      `json:"maxIndexSize,omitempty"`
}

// BuildProgress is the payload of build-index progress messages.
type BuildProgress struct {
	Indexed     int    `json:"indexed"`
	CurrentPath string `json:"currentPath"`
}

// Builder walks filesystem subtrees into index entries.
type Builder struct {
	Registry *task.Registry
	Emitter  *task.Emitter
	Log      *zap.Logger
}

// skipRules is the compiled form of BuildOptions.SkipDirs: absolute
// entries match as path prefixes, the rest as segment names.
type skipRules struct {
	prefixes []string
	segments map[string]bool
}

func compileSkipRules(skipDirs []string) skipRules {
	rules := skipRules{segments: make(map[string]bool)}
	for _, d := range skipDirs {
		if d == "" {
			continue
		}
		if filepath.IsAbs(d) {
			rules.prefixes = append(rules.prefixes, fsutil.NormalizeForCompare(d))
		} else {
			rules.segments[strings.ToLower(d)] = true
		}
	}
	return rules
}

func (r skipRules) skip(path, name string) bool {
	if r.segments[strings.ToLower(name)] {
		return true
	}
	if len(r.prefixes) == 0 {
		return false
	}
	normalized := fsutil.NormalizeForCompare(path)
	for _, p := range r.prefixes {
		if fsutil.HasPathPrefix(normalized, p) {
			return true
		}
	}
	return false
}

// excludedPath reports whether any segment of path is a well-known
// excluded directory. Used for root paths; children are checked per
// segment as they are discovered.
func excludedPath(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if excludedDirNames[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// Build walks the given roots iteratively (an explicit stack, not
// recursion, so deep trees cannot exhaust the call stack) and returns
// index entries. Stat failures omit the entry; unreadable directories
// are skipped. The walk stops once MaxIndexSize entries are collected.
func (b *Builder) Build(opts BuildOptions, opID string) ([]Entry, error) {
	if opts.MaxIndexSize <= 0 {
		opts.MaxIndexSize = DefaultMaxIndexSize
	}
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	rules := compileSkipRules(opts.SkipDirs)

	var stack []string
	for _, root := range opts.Locations {
		abs, err := filepath.Abs(root)
		if err != nil {
			log.Warn("skipping unresolvable root", zap.String("path", root), zap.Error(err))
			continue
		}
		if excludedPath(abs) || rules.skip(abs, filepath.Base(abs)) {
			continue
		}
		stack = append(stack, abs)
	}

	entries := make([]Entry, 0, 1024)
	lastEmit := time.Time{}

	for len(stack) > 0 && len(entries) < opts.MaxIndexSize {
		if err := b.Registry.Check(opID); err != nil {
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			log.Debug("unreadable directory skipped", zap.String("path", dir), zap.Error(err))
			continue
		}

		for _, de := range dirEntries {
			if err := b.Registry.Check(opID); err != nil {
				return nil, err
			}
			if len(entries) >= opts.MaxIndexSize {
				break
			}

			name := de.Name()
			path := filepath.Join(dir, name)

			if de.IsDir() {
				if excludedDirNames[strings.ToLower(name)] || rules.skip(path, name) {
					continue
				}
				stack = append(stack, path)
			} else if excludedFileNames[strings.ToLower(name)] {
				continue
			}

			info, err := de.Info()
			if err != nil {
				// Partial results beat total failure.
				continue
			}
			entries = append(entries, Entry{
				Path: path,
				Meta: Meta{
					Name:        name,
					Path:        path,
					IsDirectory: de.IsDir(),
					IsFile:      !de.IsDir(),
					Size:        info.Size(),
					Modified:    info.ModTime().UnixMilli(),
				},
			})
		}

		if time.Since(lastEmit) >= buildProgressInterval {
			b.Emitter.Emit(task.KindBuildIndex, opID, BuildProgress{
				Indexed:     len(entries),
				CurrentPath: dir,
			})
			lastEmit = time.Now()
		}
	}

	log.Info("index build finished", zap.Int("entries", len(entries)))
	return entries, nil
}
