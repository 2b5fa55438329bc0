package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"filetasks/internal/compute"
	"filetasks/internal/engine"
	"filetasks/internal/fsutil"
	"filetasks/internal/index"
	"filetasks/internal/listing"
	"filetasks/internal/search"
	"filetasks/internal/task"
)

var (
	logLevel   string
	indexFile  string
	useRegex   bool
	maxResults int
	maxDepth   int
	fileType   string
	minSize    int64
	maxSize    int64
	dateFrom   string
	dateTo     string

	skipDirs     []string
	maxIndexSize int

	batchSize     int
	includeHidden bool

	algorithms []string
)

// formatSize formats file size in human-readable form.
func formatSize(size int64) string {
	switch {
	case size >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB", float64(size)/(1024*1024*1024))
	case size >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(logLevel)); err == nil {
		cfg.Level = level
	}
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// runTask executes one engine task with SIGINT mapped to cancellation
// and progress drained into the supplied callback.
func runTask(eng *engine.Engine, kind task.Kind, payload any,
	onProgress func(task.Message)) (any, error) {

	opID := uuid.NewString()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			fmt.Fprintln(os.Stderr, "\nCancelling...")
			eng.Cancel(opID)
		}
	}()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case msg := <-eng.Events():
				if onProgress != nil {
					onProgress(msg)
				}
			case <-done:
				return
			}
		}
	}()

	result, err := eng.Run(kind, payload, opID)
	close(done)
	wg.Wait()
	close(sigChan)
	return result, err
}

func searchFilters() fsutil.Filters {
	return fsutil.Filters{
		Type:     fileType,
		MinSize:  minSize,
		MaxSize:  maxSize,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(data))
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "filetasks",
		Short: "Background filesystem tasks for file managers",
		Long: `Filesystem task runner: build a searchable index, search by name
or content (live disk or saved index), list directories, compute
folder sizes and file checksums. Every task is cancellable with
Ctrl+C and streams progress while it runs.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&indexFile, "index-file", "filetasks-index.json", "Path of the saved index document")

	rootCmd.AddCommand(indexCmd(), searchCmd(), contentCmd(), listCmd(), sizeCmd(), checksumCmd())

	if err := rootCmd.Execute(); err != nil {
		if task.IsCancelledErr(err) {
			fmt.Fprintln(os.Stderr, "Operation cancelled")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [directories...]",
		Short: "Build the search index and save it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			bar := progressbar.Default(-1, "Indexing")
			result, err := runTask(eng, task.KindBuildIndex, index.BuildOptions{
				Locations:    args,
				SkipDirs:     skipDirs,
				MaxIndexSize: maxIndexSize,
			}, func(msg task.Message) {
				if p, ok := msg.Data.(index.BuildProgress); ok {
					bar.Describe(fmt.Sprintf("Indexing %s", p.CurrentPath))
					bar.Set(p.Indexed)
				}
			})
			if err != nil {
				return err
			}
			entries := result.([]index.Entry)
			bar.Finish()

			if _, err := eng.Run(task.KindSaveIndex, engine.SavePayload{
				Path:          indexFile,
				Entries:       entries,
				LastIndexTime: nowMillis(),
			}, uuid.NewString()); err != nil {
				return err
			}
			fmt.Printf("\nIndexed %d entries into %s\n", len(entries), indexFile)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&skipDirs, "skip", nil, "Directories to exclude (absolute path or segment name)")
	cmd.Flags().IntVar(&maxIndexSize, "max-entries", 0, "Maximum number of index entries (default 200000)")
	return cmd
}

func searchCmd() *cobra.Command {
	var fromIndex bool
	cmd := &cobra.Command{
		Use:   "search <query> [root]",
		Short: "Search files by name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			var result any
			var err error
			if fromIndex {
				result, err = runTask(eng, task.KindSearchIndex, search.IndexOptions{
					IndexPath:  indexFile,
					Query:      args[0],
					UseRegex:   useRegex,
					MaxResults: maxResults,
					Filters:    searchFilters(),
				}, nil)
			} else {
				root := "."
				if len(args) > 1 {
					root = args[1]
				}
				result, err = runTask(eng, task.KindSearchFiles, search.NameOptions{
					Root:       root,
					Query:      args[0],
					UseRegex:   useRegex,
					MaxDepth:   maxDepth,
					MaxResults: maxResults,
					Filters:    searchFilters(),
				}, nil)
			}
			if err != nil {
				return err
			}
			results := result.([]search.Result)
			for _, r := range results {
				fmt.Printf("%s (%s)\n", r.Path, formatSize(r.Size))
			}
			fmt.Printf("Total: %d\n", len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromIndex, "from-index", false, "Search the saved index instead of the live disk")
	addSearchFlags(cmd)
	return cmd
}

func contentCmd() *cobra.Command {
	var fromIndex bool
	var fileList []string
	cmd := &cobra.Command{
		Use:   "content <query> [root]",
		Short: "Search file contents",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			var result any
			var err error
			switch {
			case len(fileList) > 0:
				result, err = runTask(eng, task.KindSearchContentList, search.ContentListOptions{
					Paths:      fileList,
					Query:      args[0],
					UseRegex:   useRegex,
					MaxResults: maxResults,
					Filters:    searchFilters(),
				}, nil)
			case fromIndex:
				result, err = runTask(eng, task.KindSearchContentIndex, search.IndexOptions{
					IndexPath:  indexFile,
					Query:      args[0],
					UseRegex:   useRegex,
					MaxResults: maxResults,
					Filters:    searchFilters(),
				}, nil)
			default:
				root := "."
				if len(args) > 1 {
					root = args[1]
				}
				result, err = runTask(eng, task.KindSearchContent, search.ContentOptions{
					Root:       root,
					Query:      args[0],
					UseRegex:   useRegex,
					MaxDepth:   maxDepth,
					MaxResults: maxResults,
					Filters:    searchFilters(),
				}, nil)
			}
			if err != nil {
				return err
			}
			results := result.([]search.ContentResult)
			for _, r := range results {
				fmt.Printf("%s:%d: %s\n", r.Path, r.MatchLineNumber, r.MatchContext)
			}
			fmt.Printf("Total: %d\n", len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromIndex, "from-index", false, "Use the saved index for candidate selection")
	cmd.Flags().StringSliceVar(&fileList, "files", nil, "Search only these files")
	addSearchFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <directory>",
		Short: "List a directory with resolved metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			result, err := runTask(eng, task.KindListDirectory, listing.Options{
				DirPath:       args[0],
				BatchSize:     batchSize,
				IncludeHidden: includeHidden,
			}, nil)
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch", 0, "Entries per resolved batch (default 500)")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "Include hidden entries")
	return cmd
}

func sizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size <directory>",
		Short: "Compute the total size of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			bar := progressbar.Default(-1, "Scanning")
			result, err := runTask(eng, task.KindFolderSize, compute.SizeOptions{
				Path: args[0],
			}, func(msg task.Message) {
				if p, ok := msg.Data.(compute.SizeProgress); ok {
					bar.Describe(fmt.Sprintf("Scanning (%s)", formatSize(p.CalculatedSize)))
					bar.Set(p.FileCount)
				}
			})
			if err != nil {
				return err
			}
			bar.Finish()
			res := result.(compute.SizeResult)
			fmt.Printf("\n%s: %s, %d files, %d folders\n",
				args[0], formatSize(res.Size), res.FileCount, res.FolderCount)
			return nil
		},
	}
}

func checksumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checksum <file>",
		Short: "Compute file checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()
			eng := engine.New(engine.WithLogger(log))
			defer eng.Close()

			bar := progressbar.Default(100, "Hashing")
			result, err := runTask(eng, task.KindChecksum, compute.ChecksumOptions{
				Path:       args[0],
				Algorithms: algorithms,
			}, func(msg task.Message) {
				if p, ok := msg.Data.(compute.ChecksumProgress); ok {
					bar.Set(int(p.Percent))
				}
			})
			if err != nil {
				return err
			}
			bar.Finish()
			sums := result.(map[string]string)
			fmt.Println()
			for algo, sum := range sums {
				fmt.Printf("%s  %s\n", algo, sum)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&algorithms, "algo", "a", []string{"sha256"}, "Hash algorithms (md5, sha1, sha256, sha512, xxh64)")
	return cmd
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&useRegex, "regex", "r", false, "Treat the query as a regular expression")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "Stop after this many results (default 1000)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Traversal depth limit for live-disk search")
	cmd.Flags().StringVarP(&fileType, "type", "t", "", "File type filter (image, video, audio, document, archive, folder)")
	cmd.Flags().Int64Var(&minSize, "min-size", 0, "Minimum file size in bytes")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "Maximum file size in bytes")
	cmd.Flags().StringVar(&dateFrom, "from", "", "Only entries modified on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "Only entries modified through this date (YYYY-MM-DD)")
}
