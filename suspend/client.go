package suspend

import "fmt"

// Client is one caller identity. A Client must only be used from one
// goroutine at a time.
type Client struct {
	coord *Coordinator
	name  string
}

func (cl *Client) Name() string {
	return cl.name
}

// Suspend blocks until the driver grants the token. A client that already
// holds the token only increments its depth.
func (cl *Client) Suspend() {
	cl.coord.suspend(cl)
}

// Resume gives back one level of the token. Resuming without holding the
// token panics.
func (cl *Client) Resume() {
	cl.coord.resume(cl)
}

func (cl *Client) IsSuspended() bool {
	return cl.coord.IsSuspended(cl)
}

// Depth is the current recursion depth, zero when not suspended
func (cl *Client) Depth() int {
	return cl.coord.depthOf(cl)
}

// Lock suspends and returns a guard for the acquired level
func (cl *Client) Lock() *Guard {
	cl.Suspend()
	return &Guard{client: cl, depth: cl.Depth()}
}

// Guard releases exactly the level it acquired
type Guard struct {
	client *Client
	depth  int
	done   bool
}

func (g *Guard) Unlock() {
	if g.done {
		panic(fmt.Sprintf("suspend: %s guard released twice", g.client.name))
	}
	if d := g.client.Depth(); d != g.depth {
		panic(fmt.Sprintf("suspend: %s released at depth %d, acquired at %d", g.client.name, d, g.depth))
	}
	g.done = true
	g.client.Resume()
}
