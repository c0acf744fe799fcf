package assets

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-dx12/engine/core"
)

// BlobExt is the extension of pipeline-cache files.
const BlobExt = ".pso"

var ErrStoreClosed = errors.New("pipeline cache store closed")

type blobInfo struct {
	Path       string
	Data       []byte
	ModTime    time.Time
	LastLoaded time.Time
}

func newBlobInfo(path string, data []byte) blobInfo {
	info := blobInfo{Path: path, Data: data, LastLoaded: time.Now()}
	if fi, err := os.Stat(path); err == nil {
		info.ModTime = fi.ModTime()
	}
	return info
}

// matches reports whether the file on disk is still the one that was loaded.
func (b blobInfo) matches(fi os.FileInfo) bool {
	return fi.ModTime().Equal(b.ModTime) && fi.Size() == int64(len(b.Data))
}

// PipelineCacheStore keeps opaque pipeline-cache blobs as one file per
// pipeline label. Loaded blobs are kept in memory until the file changes on
// disk.
type PipelineCacheStore struct {
	dir   string
	blobs map[string]blobInfo

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	events   chan string
}

// NewPipelineCacheStore creates dir if needed and starts watching it.
func NewPipelineCacheStore(dir string) (*PipelineCacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create pipeline cache dir %s", dir)
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watch %s", dir)
	}
	s := &PipelineCacheStore{
		dir:      dir,
		blobs:    make(map[string]blobInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		events:   make(chan string, 16),
	}
	s.wg.Add(1)
	go s.start()
	core.LogDebug("pipeline cache watching %s", dir)
	return s, nil
}

func (s *PipelineCacheStore) Dir() string {
	return s.dir
}

// Invalidations reports the labels dropped because their file changed. Sends
// never block; a slow reader misses notifications.
func (s *PipelineCacheStore) Invalidations() <-chan string {
	return s.events
}

func (s *PipelineCacheStore) pathOf(label string) string {
	return filepath.Join(s.dir, url.PathEscape(label)+BlobExt)
}

func labelOf(path string) (string, bool) {
	name := filepath.Base(path)
	if filepath.Ext(name) != BlobExt {
		return "", false
	}
	label, err := url.PathUnescape(strings.TrimSuffix(name, BlobExt))
	if err != nil || label == "" {
		return "", false
	}
	return label, true
}

// Load returns the blob stored for label, or nil when there is none.
func (s *PipelineCacheStore) Load(label string) []byte {
	if label == "" {
		return nil
	}
	s.mutex.RLock()
	info, ok := s.blobs[label]
	closed := s.isClosed
	s.mutex.RUnlock()
	if ok {
		return info.Data
	}
	if closed {
		return nil
	}

	path := s.pathOf(label)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			core.LogWarn("pipeline cache: read %s: %v", path, err)
		}
		return nil
	}

	s.mutex.Lock()
	s.blobs[label] = newBlobInfo(path, data)
	s.mutex.Unlock()
	return data
}

// Store writes blob to disk through a temporary file and replaces the cached
// copy.
func (s *PipelineCacheStore) Store(label string, blob []byte) error {
	if label == "" {
		return errors.New("pipeline cache: empty label")
	}
	s.mutex.RLock()
	closed := s.isClosed
	s.mutex.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	path := s.pathOf(label)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "pipeline cache: create temp file")
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "pipeline cache: write %s", label)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "pipeline cache: write %s", label)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "pipeline cache: replace %s", path)
	}

	data := make([]byte, len(blob))
	copy(data, blob)
	s.mutex.Lock()
	s.blobs[label] = newBlobInfo(path, data)
	s.mutex.Unlock()
	core.LogDebug("pipeline cache: stored %d bytes for %q", len(blob), label)
	return nil
}

// Remove deletes the blob for label from memory and disk.
func (s *PipelineCacheStore) Remove(label string) error {
	s.invalidate(label)
	if err := os.Remove(s.pathOf(label)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "pipeline cache: remove %s", label)
	}
	return nil
}

// Labels lists the labels that have a blob on disk.
func (s *PipelineCacheStore) Labels() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.dir)
	}
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if label, ok := labelOf(e.Name()); ok {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

func (s *PipelineCacheStore) Close() error {
	s.mutex.Lock()
	if s.isClosed {
		s.mutex.Unlock()
		return nil
	}
	s.isClosed = true
	s.blobs = make(map[string]blobInfo)
	s.mutex.Unlock()

	close(s.done)
	s.wg.Wait()
	return nil
}

func (s *PipelineCacheStore) start() {
	defer s.wg.Done()
	for {
		select {
		case e, ok := <-s.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			label, ok := labelOf(e.Name)
			if !ok {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && s.unchanged(label, e.Name) {
				continue
			}
			s.invalidate(label)

		case err, ok := <-s.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("pipeline cache watcher: %v", err)

		case <-s.done:
			s.fsnotify.Close()
			close(s.events)
			return
		}
	}
}

// unchanged filters out the events caused by Store itself.
func (s *PipelineCacheStore) unchanged(label, path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	info, ok := s.blobs[label]
	return ok && info.matches(fi)
}

func (s *PipelineCacheStore) invalidate(label string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.isClosed {
		return
	}
	if _, cached := s.blobs[label]; !cached {
		return
	}
	delete(s.blobs, label)
	core.LogDebug("pipeline cache: %q invalidated", label)
	select {
	case s.events <- label:
	default:
	}
}

func (s *PipelineCacheStore) cached(label string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.blobs[label]
	return ok
}
