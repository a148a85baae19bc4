package gate

import "log"

// RequestExit asks the process to terminate. force exits at once. Otherwise
// the request is latched until all uploads are done, and then honored once
// the update check has finished.
func (g *Gate) RequestExit(force bool) {
	if force {
		g.exit()
		return
	}

	g.mu.Lock()
	if !g.uploaded {
		g.exitRequested = true
		g.mu.Unlock()
		log.Printf("Gate: exit requested, waiting for uploads")
		return
	}
	ready := g.updateChecked
	g.exitRequested = true
	g.mu.Unlock()

	if ready {
		g.exit()
	}
}

// MarkUpdateChecked records that the update check finished and completes a
// latched exit whose uploads are done.
func (g *Gate) MarkUpdateChecked() {
	g.mu.Lock()
	g.updateChecked = true
	ready := g.exitRequested && g.uploaded
	g.mu.Unlock()

	if ready {
		g.exit()
	}
}

// ExitRequested reports whether an exit is latched.
func (g *Gate) ExitRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exitRequested
}

func (g *Gate) exit() {
	g.exitOnce.Do(func() {
		log.Printf("Gate: exiting")
		if g.opts.Exit != nil {
			g.opts.Exit()
		}
	})
}
