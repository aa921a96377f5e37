// Package suspend implements the single-owner token that worker goroutines
// hold while they touch target memory. A driver loop hands the token out
// from Update, one requester at a time, most recent requester first.
//
// Workers:
//
//	g := client.Lock()
//	defer g.Unlock()
//
// Driver:
//
//	for {
//		coord.Update(tick)
//	}
//
// There are no timeouts. A client that never resumes stalls the driver.
package suspend

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ClaimDepth is the depth recorded for a forced driver claim
const ClaimDepth = 1000000

type token struct {
	client *Client
	wake   chan struct{}
	done   bool
}

// Coordinator owns the suspend token for one process connection
type Coordinator struct {
	mu       sync.Mutex
	coreCond *sync.Cond
	owner    *Client
	depth    int
	claim    int
	granting *token

	stackMu sync.Mutex
	stack   []*token

	notify chan struct{}
	log    *logger.Logger
}

func NewCoordinator() *Coordinator {
	c := &Coordinator{
		notify: make(chan struct{}, 1),
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorWhite, "suspend")),
	}
	c.coreCond = sync.NewCond(&c.mu)
	return c
}

// NewClient returns a caller identity. Each worker goroutine uses its own.
func (c *Coordinator) NewClient(name string) *Client {
	return &Client{coord: c, name: name}
}

// IsSuspended reports whether cl currently holds the token
func (c *Coordinator) IsSuspended(cl *Client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cl != nil && c.owner == cl
}

// Owner returns the client holding the token, or nil
func (c *Coordinator) Owner() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Claimed reports whether the driver holds its own claim
func (c *Coordinator) Claimed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claim > 0
}

// Pending returns the number of queued requests
func (c *Coordinator) Pending() int {
	c.stackMu.Lock()
	defer c.stackMu.Unlock()
	return len(c.stack)
}

// Notify is signalled whenever a request is queued. A driver that is not
// hooked into the target's loop can select on it to call Update early.
func (c *Coordinator) Notify() <-chan struct{} {
	return c.notify
}

// ClaimSuspend marks the token as held by the driver without the blocking
// handshake and returns the previous claim level for DisclaimSuspend.
func (c *Coordinator) ClaimSuspend(forceBase bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner != nil {
		panic(fmt.Sprintf("suspend: driver claim while %s holds the token", c.owner.name))
	}
	level := c.claim
	if forceBase || level == 0 {
		c.claim = ClaimDepth
	} else {
		c.claim++
	}
	return level
}

// DisclaimSuspend releases a claim taken with ClaimSuspend
func (c *Coordinator) DisclaimSuspend(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claim == 0 {
		panic("suspend: disclaim without claim")
	}
	if level < 0 || level >= c.claim {
		panic(fmt.Sprintf("suspend: disclaim to level %d from %d", level, c.claim))
	}
	c.claim = level
}

func (c *Coordinator) push(t *token) {
	c.stackMu.Lock()
	c.stack = append(c.stack, t)
	c.stackMu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *Coordinator) pop() *token {
	c.stackMu.Lock()
	defer c.stackMu.Unlock()
	n := len(c.stack)
	if n == 0 {
		return nil
	}
	t := c.stack[n-1]
	c.stack[n-1] = nil
	c.stack = c.stack[:n-1]
	return t
}

// Update runs tick under the driver's own claim, then services every
// queued request, newest first. Each request runs to its final Resume
// before the next is woken. Requests queued during the drain are serviced
// in the same call.
func (c *Coordinator) Update(tick func()) {
	level := c.ClaimSuspend(true)
	if tick != nil {
		tick()
	}
	c.DisclaimSuspend(level)

	for t := c.pop(); t != nil; t = c.pop() {
		c.grant(t)
	}
}

func (c *Coordinator) grant(t *token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner != nil || c.claim != 0 {
		panic("suspend: grant while token is held")
	}
	c.log.Debugln("granting", t.client.name)
	c.granting = t
	close(t.wake)
	for !t.done {
		c.coreCond.Wait()
	}
	if c.owner != nil || c.depth != 0 {
		panic(fmt.Sprintf("suspend: %s returned at depth %d", t.client.name, c.depth))
	}
	c.granting = nil
}

func (c *Coordinator) suspend(cl *Client) {
	c.mu.Lock()
	if c.owner == cl {
		c.depth++
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	t := &token{client: cl, wake: make(chan struct{})}
	c.push(t)
	<-t.wake

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.granting != t {
		panic("suspend: woken without a grant")
	}
	c.owner = cl
	c.depth = 1
}

func (c *Coordinator) resume(cl *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner != cl {
		panic(fmt.Sprintf("suspend: %s resumed without holding the token", cl.name))
	}
	c.depth--
	if c.depth > 0 {
		return
	}
	c.owner = nil
	c.granting.done = true
	c.coreCond.Broadcast()
}

func (c *Coordinator) depthOf(cl *Client) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != cl {
		return 0
	}
	return c.depth
}
