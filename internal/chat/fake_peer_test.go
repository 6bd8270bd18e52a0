package chat_test

import (
	"errors"
	"sync"
)

// fakePeer records everything sent to it, optionally failing or enforcing a
// payload limit like a datagram peer would.
type fakePeer struct {
	addr  string
	limit int
	fail  bool

	mu    sync.Mutex
	lines []string
	files []fakeFile
}

type fakeFile struct {
	sender   string
	filename string
	data     []byte
}

func newFakePeer(addr string) *fakePeer {
	return &fakePeer{addr: addr}
}

func (p *fakePeer) SendLine(line string) error {
	if p.fail {
		return errors.New("send failed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
	return nil
}

func (p *fakePeer) SendFile(sender, filename string, data []byte) error {
	if p.fail {
		return errors.New("send failed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, fakeFile{sender: sender, filename: filename, data: data})
	return nil
}

func (p *fakePeer) Addr() string   { return p.addr }
func (p *fakePeer) FileLimit() int { return p.limit }

func (p *fakePeer) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *fakePeer) Files() []fakeFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]fakeFile(nil), p.files...)
}
