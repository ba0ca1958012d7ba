package core

import (
	"bytes"
	"io"
	"sync"
)

// lineEnders end a readline call: enter, ^C and ^D.
const lineEnders = "\r\n\x03\x04"

// promptInput passes input to the line editor only while a prompt is open.
// The editor reads in a background goroutine, without the gate it would
// swallow input meant for foreground jobs or read the terminal while the
// shell is in a background process group.
type promptInput struct {
	r io.Reader

	mu     sync.Mutex
	cond   *sync.Cond
	open   bool
	closed bool
}

func newPromptInput(r io.Reader) *promptInput {
	p := &promptInput{r: r}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Open lets reads through until the next line is complete.
func (p *promptInput) Open() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.open = true
	p.cond.Broadcast()
}

func (p *promptInput) Read(b []byte) (int, error) {
	p.mu.Lock()
	for !p.open && !p.closed {
		p.cond.Wait()
	}
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return 0, io.EOF
	}

	n, err := p.r.Read(b)
	if err != nil || bytes.ContainsAny(b[:n], lineEnders) {
		p.mu.Lock()
		p.open = false
		p.mu.Unlock()
	}
	return n, err
}

// Close releases any reader waiting for the gate.
func (p *promptInput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
	return nil
}
