package patches

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DriftError reports that a hook changed the patch file set. The tool
// never reconciles or guesses intent when that happens; the publish
// attempt aborts.
type DriftError struct {
	Added   []string
	Removed []string
	// Events are filesystem events observed while the hook ran, for
	// diagnosis only.
	Events []string
}

func (e *DriftError) Error() string {
	var b strings.Builder
	b.WriteString("hook changed the patch file set")
	if len(e.Added) > 0 {
		fmt.Fprintf(&b, "; added: %s", strings.Join(e.Added, ", "))
	}
	if len(e.Removed) > 0 {
		fmt.Fprintf(&b, "; removed: %s", strings.Join(e.Removed, ", "))
	}
	if len(e.Events) > 0 {
		fmt.Fprintf(&b, " (observed: %s)", strings.Join(e.Events, ", "))
	}
	return b.String()
}

// Snapshot captures the current patch file set of dir by name.
func Snapshot(dir string) (map[string]bool, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return set, nil
}

// CheckDrift compares before/after snapshots and returns a *DriftError
// when they differ, with events attached for context.
func CheckDrift(before, after map[string]bool, events []string) error {
	var added, removed []string
	for f := range after {
		if !before[f] {
			added = append(added, f)
		}
	}
	for f := range before {
		if !after[f] {
			removed = append(removed, f)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	sort.Strings(added)
	sort.Strings(removed)
	return &DriftError{Added: added, Removed: removed, Events: events}
}

// Observer records filesystem events in the patch directory while a hook
// runs. It is supplementary diagnostics for DriftError; the snapshot diff
// stays authoritative.
type Observer struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	events  []string
}

// Observe starts watching dir. A nil Observer (watch setup failure) is
// valid; callers treat it as a no-op since the snapshot diff still runs.
func Observe(dir string) *Observer {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil
	}
	o := &Observer{watcher: fw, done: make(chan struct{})}
	go o.loop()
	return o
}

func (o *Observer) loop() {
	defer close(o.done)
	for {
		select {
		case ev, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				o.events = append(o.events, ev.String())
			}
		case _, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Stop ends the watch and returns the recorded events.
func (o *Observer) Stop() []string {
	if o == nil {
		return nil
	}
	o.watcher.Close()
	<-o.done
	return o.events
}
