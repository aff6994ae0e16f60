// Package ui prints pulsar's status lines to stderr, keeping stdout free
// for the collaborating git processes.
package ui

import (
	"fmt"
	"os"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

type Printer struct{}

func New() *Printer {
	return &Printer{}
}

// Revision announces which revision of a topic is being prepared.
func (p *Printer) Revision(topic string, number int) {
	fmt.Fprintf(os.Stderr, bold+cyan+"▶ %s"+reset+dim+" preparing v%d"+reset+"\n", topic, number)
}

// Staged reports that the staging tag was written.
func (p *Printer) Staged(tag string) {
	fmt.Fprintf(os.Stderr, dim+"  staged %s"+reset+"\n", tag)
}

// Published reports the final versioned tag after a successful send.
func (p *Printer) Published(tag string) {
	fmt.Fprintf(os.Stderr, green+bold+"✓ published %s"+reset+"\n", tag)
}

// Pushed reports a pull-request tag push.
func (p *Printer) Pushed(remote, tag string) {
	fmt.Fprintf(os.Stderr, green+bold+"✓ pushed %s to %s"+reset+"\n", tag, remote)
}

// Cancelled reports a user cancellation.
func (p *Printer) Cancelled() {
	fmt.Fprintln(os.Stderr, yellow+"✗ cancelled"+reset+" — staging tag kept")
}

// Warn prints a non-fatal notice.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, yellow+"⚠ "+format+reset+"\n", args...)
}

// Error prints a fatal error before the process exits non-zero.
func (p *Printer) Error(err error) {
	fmt.Fprintf(os.Stderr, red+bold+"error:"+reset+" %v\n", err)
}
