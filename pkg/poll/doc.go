// Package poll keeps a dashboard consistent with a remote agent source.
//
// A [Controller] fetches the agent list on a fixed interval and owns a
// single [State] value: the last good snapshot, the selected agent and the
// fetch status. Every transition builds a new State and swaps it in, so
// readers never observe a half-updated graph.
//
// # Refresh policy
//
// Each cycle moves Idle → Fetching → Idle. At most one fetch is in flight;
// a tick that fires while the previous fetch is outstanding is counted in
// [Status.Skipped] and dropped. On success the snapshot is replaced and the
// selection survives only if its agent is still present. On failure the
// previous snapshot stays on screen and [Status.LastError] is set.
//
// # Usage
//
//	c := poll.New(src, poll.WithInterval(5*time.Second), poll.WithLogger(logger))
//	defer c.Close()
//	go c.Run(ctx)
//
//	updates, cancel := c.Subscribe()
//	defer cancel()
//	for st := range updates {
//	    draw(st.Scene(), st.Selection)
//	}
package poll
