/*
Package ipc is the boundary between the launcher and the applications it
spawns.

The lifecycle actor talks to it through three calls: ListenerEndpoint
once at start-up, AppActivated with a fresh ticket before each spawn, and
AppTerminated when an application is removed. All three become events on
one channel, applied in order by the server loop.

A spawned application receives "--launcher tcp:<endpoint>:<nonce>",
connects to endpoint, writes the nonce followed by a newline and reads
back one JSON line:

	{"ticket":{"nonce":"...","app_id":"app_...","app_root_dir_key":"...","drive_access":false}}

or {"error":"..."} when the nonce is unknown, already used or expired.
*/
package ipc
