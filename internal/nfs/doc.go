/*
Package nfs is the networked directory and file abstraction the launcher
keeps its shared configuration and application root directories in.

Three implementations share the Store interface:

	MemoryStore   in-process, versioned files, used standalone and in tests
	RemoteStore   resty client for a peer's Server, behind a circuit breaker
	Instrumented  decorator recording per-call metrics

Server mounts any Store on a gin router:

	GET    /v1/root
	GET    /v1/config-dirs/:name
	POST   /v1/config-dirs
	GET    /v1/dirs/:key
	POST   /v1/dirs/:key/children
	DELETE /v1/dirs/:key/children/:name
	POST   /v1/dirs/:key/files
	GET    /v1/dirs/:key/files/:name
	PUT    /v1/dirs/:key/files/:name

Missing directories and files map to 404 and types.ErrNotFound on both
sides of the wire; name collisions map to 409 and ErrExists.
*/
package nfs
