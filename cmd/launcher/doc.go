// Command launcher runs the safe launcher agent.
//
// Configuration comes from the environment (see internal/infrastructure/config)
// and can be overridden with flags:
//
//	launcher -port 8800 -store remote -store-addr http://peer:8801 -key-file ~/.launcher.key
package main
