// Package fsys provides the filesystem enumeration the tagging core
// consumes, with retry logic for transient errors on network mounts.
package fsys

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tagdex/internal/metrics"
)

// FileRef is one regular file seen on disk. Untracked files are represented
// by nothing more than this.
type FileRef struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Lister enumerates the filesystem for the core. Implementations return an
// error when a path cannot be read; the core treats that as "unavailable"
// and aborts the dependent operation without partial side effects.
type Lister interface {
	ListFiles(path string) ([]FileRef, error)
	ListSubdirectories(path string) ([]string, error)
}

// RetryConfig configures retry behavior for directory listings.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS-style flakiness.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// OS lists directories straight off the local filesystem.
type OS struct {
	Retry RetryConfig
}

// NewOS returns an OS lister with the default retry configuration.
func NewOS() *OS {
	return &OS{Retry: DefaultRetryConfig()}
}

// isTransientError reports whether a listing error is worth retrying: stale
// NFS handles and interrupted syscalls resolve themselves; permission and
// not-found errors do not.
func isTransientError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE || errno == syscall.EINTR
	}
	return false
}

func (o *OS) readDir(path string) ([]os.DirEntry, error) {
	var lastErr error
	backoff := o.Retry.InitialBackoff

	for attempt := 0; attempt <= o.Retry.MaxRetries; attempt++ {
		entries, err := os.ReadDir(path)
		if err == nil {
			if attempt > 0 {
				log.Infof("readdir succeeded on retry %d for %s", attempt, path)
			}
			return entries, nil
		}

		lastErr = err
		if !isTransientError(err) {
			return nil, err
		}

		if attempt < o.Retry.MaxRetries {
			metrics.ListRetryAttempts.WithLabelValues("readdir").Inc()
			log.Debugf("readdir transient failure for %s, retrying in %v (attempt %d/%d)",
				path, backoff, attempt+1, o.Retry.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > o.Retry.MaxBackoff {
				backoff = o.Retry.MaxBackoff
			}
		}
	}

	metrics.ListFailures.WithLabelValues("readdir").Inc()
	log.Warnf("readdir failed after %d retries for %s: %v", o.Retry.MaxRetries, path, lastErr)
	return nil, lastErr
}

// ListFiles returns the regular files directly under path, without
// descending into subdirectories.
func (o *OS) ListFiles(path string) ([]FileRef, error) {
	entries, err := o.readDir(path)
	if err != nil {
		return nil, err
	}

	var refs []FileRef
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ref := FileRef{
			Path: filepath.Join(path, entry.Name()),
			Name: entry.Name(),
		}
		// Entry metadata is best effort; a file that vanished between the
		// listing and the stat is still reported by name.
		if info, err := entry.Info(); err == nil {
			ref.Size = info.Size()
			ref.ModTime = info.ModTime()
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ListSubdirectories returns the absolute paths of the directories directly
// under path.
func (o *OS) ListSubdirectories(path string) ([]string, error) {
	entries, err := o.readDir(path)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(path, entry.Name()))
		}
	}
	return dirs, nil
}
