package compute

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash"

	"filetasks/internal/task"
)

// ErrNoAlgorithms is the hard error for an empty or absent algorithm
// list; a checksum request with nothing to compute is caller error,
// not a no-op.
var ErrNoAlgorithms = errors.New("checksum: no algorithms specified")

// bufferPool feeds the checksum read loop.
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// ChecksumOptions configures a checksum computation.
type ChecksumOptions struct {
	Path       string   `json:"path"`
	Algorithms []string `json:"algorithms"`
}

// ChecksumProgress is the payload of checksum progress messages.
// Algorithm is the algorithm name, or the names joined with "+" when
// several were requested jointly.
type ChecksumProgress struct {
	Percent   float64 `json:"percent"`
	Algorithm string  `json:"algorithm"`
}

func newHasher(name string) (hash.Hash, error) {
	switch strings.ToLower(name) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "xxh64", "xxhash":
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("checksum: unsupported algorithm %q", name)
	}
}

// Checksum streams the file's bytes once through every requested hash
// accumulator. Progress is percent of bytes read, clamped to [0,100]
// and 0 for a zero-byte file. Cancellation is polled per chunk, so it
// aborts mid-file. Read errors (for example, the path is a directory)
// propagate as task failures.
func (c *Calculator) Checksum(opts ChecksumOptions, opID string) (map[string]string, error) {
	if len(opts.Algorithms) == 0 {
		return nil, ErrNoAlgorithms
	}

	hashers := make([]hash.Hash, len(opts.Algorithms))
	for i, name := range opts.Algorithms {
		h, err := newHasher(name)
		if err != nil {
			return nil, err
		}
		hashers[i] = h
	}
	label := strings.Join(opts.Algorithms, "+")

	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	total := info.Size()

	bufp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufp)
	buf := *bufp

	var read int64
	lastEmit := time.Time{}
	for {
		if err := c.Registry.Check(opID); err != nil {
			return nil, err
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			for _, h := range hashers {
				h.Write(buf[:n])
			}
			read += int64(n)

			if time.Since(lastEmit) >= 100*time.Millisecond {
				c.Emitter.Emit(task.KindChecksum, opID, ChecksumProgress{
					Percent:   percent(read, total),
					Algorithm: label,
				})
				lastEmit = time.Now()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read file: %w", readErr)
		}
	}

	c.Emitter.Emit(task.KindChecksum, opID, ChecksumProgress{
		Percent:   percent(read, total),
		Algorithm: label,
	})

	sums := make(map[string]string, len(hashers))
	for i, h := range hashers {
		sums[strings.ToLower(opts.Algorithms[i])] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, nil
}

func percent(read, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(read) / float64(total) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
