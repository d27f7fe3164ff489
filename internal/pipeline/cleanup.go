package pipeline

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Paths registered here are removed if the process receives SIGINT or
// SIGTERM before they are released.
var cleanup = struct {
	sync.Mutex
	next    int
	paths   map[int]string
	started bool
}{paths: make(map[int]string)}

// RemoveOnSignal registers path for removal on interrupt. The returned
// release func unregisters it and is safe to call more than once.
func RemoveOnSignal(path string) (release func()) {
	cleanup.Lock()
	defer cleanup.Unlock()

	if !cleanup.started {
		cleanup.started = true
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go handleSignal(ch)
	}

	id := cleanup.next
	cleanup.next++
	cleanup.paths[id] = path

	var once sync.Once
	return func() {
		once.Do(func() {
			cleanup.Lock()
			delete(cleanup.paths, id)
			cleanup.Unlock()
		})
	}
}

// raise delivers sig to this process.
var raise = func(sig os.Signal) {
	if p, err := os.FindProcess(os.Getpid()); err == nil {
		_ = p.Signal(sig)
	}
}

func handleSignal(ch chan os.Signal) {
	sig := <-ch
	removeRegistered()

	// Restore default handling and deliver the signal again so the process
	// exits with the status the sender expects. If it survives, the next
	// registration starts a new listener.
	signal.Stop(ch)
	signal.Reset(os.Interrupt, syscall.SIGTERM)
	cleanup.Lock()
	cleanup.started = false
	cleanup.Unlock()
	raise(sig)
}

func removeRegistered() {
	cleanup.Lock()
	defer cleanup.Unlock()
	for id, path := range cleanup.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("cleanup failed", "path", path, "error", err)
		}
		delete(cleanup.paths, id)
	}
}

func registeredPaths() []string {
	cleanup.Lock()
	defer cleanup.Unlock()
	out := make([]string, 0, len(cleanup.paths))
	for _, p := range cleanup.paths {
		out = append(out, p)
	}
	return out
}
