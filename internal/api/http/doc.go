// Package http implements the launcher control API.
//
// Routes:
//
//	GET    /            service banner
//	GET    /health      launcher stats and metric snapshot
//	POST   /apps        register {"absolute_path": "...", "drive_access": false}
//	DELETE /apps/:id    drop one reference
//	POST   /apps/:id/activate
//	GET    /metrics     Prometheus exposition
package http
