package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"

	"github.com/fsnotify/fsnotify"
)

// CertReloader serves the current server certificate and swaps it in
// place when the certificate or key file changes on disk.
type CertReloader struct {
	cfg     config.TLSConfig
	cert    atomic.Pointer[tls.Certificate]
	metrics *observability.Metrics
	logger  *errors.Logger

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	timerMu       sync.Mutex
	debounceTimer *time.Timer
	lastModTime   map[string]time.Time

	reloadChan chan struct{}
	stopChan   chan struct{}
	closeOnce  sync.Once
}

// NewCertReloader loads the initial certificate. File watching starts only
// for file-based certificates with auto reload enabled; PEM content from
// Vault is fixed for the life of the process.
func NewCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*CertReloader, error) {
	debounce := cfg.AutoReload.DebounceDelay
	if debounce <= 0 {
		debounce = time.Second
	}
	if metrics == nil {
		metrics = &observability.Metrics{}
	}

	cr := &CertReloader{
		cfg:           cfg,
		metrics:       metrics,
		logger:        logger,
		debounceDelay: debounce,
		lastModTime:   make(map[string]time.Time),
		reloadChan:    make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
	}

	cert, err := loadServerCertificate(cfg)
	if err != nil {
		return nil, err
	}
	cr.cert.Store(&cert)

	if cfg.AutoReload.Enabled && cfg.CertContent == "" && cfg.CertFile != "" {
		if err := cr.startWatching(); err != nil {
			return nil, err
		}
	}
	return cr, nil
}

// GetCertificate satisfies tls.Config.GetCertificate.
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return cr.cert.Load(), nil
}

// Reload reads the certificate again. A failed reload keeps serving the
// previous certificate.
func (cr *CertReloader) Reload() error {
	cert, err := loadServerCertificate(cr.cfg)
	cr.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates")
		return err
	}
	cr.cert.Store(&cert)
	cr.logger.Info("TLS certificates reloaded successfully")
	return nil
}

// Watching reports whether certificate files are being watched.
func (cr *CertReloader) Watching() bool {
	return cr.fsWatcher != nil
}

func (cr *CertReloader) watchedFiles() []string {
	var files []string
	for _, f := range []string{cr.cfg.CertFile, cr.cfg.KeyFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

func (cr *CertReloader) startWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	files := cr.watchedFiles()
	for _, file := range files {
		if stat, err := os.Stat(file); err == nil {
			cr.lastModTime[file] = stat.ModTime()
		}
		// the directory catches atomic writes done by rename
		dir := filepath.Dir(file)
		if err := watcher.Add(dir); err != nil {
			cr.logger.Warn("Failed to watch certificate directory", "directory", dir, "error", err)
		}
	}

	cr.fsWatcher = watcher
	go cr.watchLoop()

	cr.logger.Info("Certificate file watcher started",
		"files", files,
		"debounce_delay", cr.debounceDelay)
	return nil
}

func (cr *CertReloader) watchLoop() {
	for {
		select {
		case event, ok := <-cr.fsWatcher.Events:
			if !ok {
				return
			}
			if cr.shouldProcessEvent(event) {
				cr.scheduleReload()
			}

		case err, ok := <-cr.fsWatcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "File watcher error")

		case <-cr.reloadChan:
			if cr.hasAnyFileChanged() {
				cr.logger.Info("Certificate files changed, triggering reload")
				_ = cr.Reload()
			}

		case <-cr.stopChan:
			return
		}
	}
}

func (cr *CertReloader) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return slices.ContainsFunc(cr.watchedFiles(), func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
}

func (cr *CertReloader) hasAnyFileChanged() bool {
	changed := false
	for _, file := range cr.watchedFiles() {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		if last, ok := cr.lastModTime[file]; !ok || stat.ModTime().After(last) {
			cr.lastModTime[file] = stat.ModTime()
			changed = true
		}
	}
	return changed
}

func (cr *CertReloader) scheduleReload() {
	cr.timerMu.Lock()
	defer cr.timerMu.Unlock()

	if cr.debounceTimer != nil {
		cr.debounceTimer.Stop()
	}
	cr.debounceTimer = time.AfterFunc(cr.debounceDelay, func() {
		select {
		case cr.reloadChan <- struct{}{}:
		default:
		}
	})
}

// Close stops watching.
func (cr *CertReloader) Close() error {
	var err error
	cr.closeOnce.Do(func() {
		close(cr.stopChan)

		cr.timerMu.Lock()
		if cr.debounceTimer != nil {
			cr.debounceTimer.Stop()
		}
		cr.timerMu.Unlock()

		if cr.fsWatcher != nil {
			err = cr.fsWatcher.Close()
		}
	})
	return err
}
