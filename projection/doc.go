// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package projection is the client-side view of a session: a reducer over an
initial snapshot and the realtime event stream.

	board := projection.New(snapshot)
	for ev := range sub.Events() {
		if board.Apply(ev) {
			render(board.Results())
		}
	}

Subscribe first, then fetch the snapshot. Events that arrive before the
snapshot can be applied once it is in: the snapshot lists the ID of every
vote it counted, so a cast it already reflects is skipped and a retract of a
vote it never counted is dropped. Images already present and repeated event
IDs are ignored too.
*/
package projection
