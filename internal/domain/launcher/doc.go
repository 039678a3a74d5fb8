/*
Package launcher implements the lifecycle actor of the safe launcher.

A Launcher owns the machine-local cache of launch paths and is the only
component of an agent that writes the shared configuration. Add, Remove
and Activate are queued on one channel and applied strictly one at a
time, so the read-modify-write cycles on the shared file never interleave
within an agent.

Lifecycle:

	Start     load local cache, drop entries without a shared row,
	          get IPC endpoint
	Add       register a path, allocate or adopt a root directory
	Remove    drop a reference, reclaim the root directory at zero
	Activate  issue a ticket and spawn the app
	Terminate persist local cache once, stop the worker

Every request returns its own result. A failing request never stops the
worker; only Terminate does.
*/
package launcher
