// Package paths provides standardized names and paths for the launcher.
//
// # Layout
//
//	$TMPDIR/
//	  └── safe-launcher-local.config       (encrypted local cache)
//
//	networked tree
//	  ├── safe-launcher-global/            (configuration directory)
//	  │   └── safe-launcher-global.config  (shared app configuration)
//	  └── user root/
//	      ├── editor-0-Root-Dir/           (per-application root directories)
//	      └── editor-1-Root-Dir/
//
// # Usage
//
//	name, err := paths.AppName("/apps/editor")  // "editor"
//	dir := paths.RootDirName(name, 0)           // "editor-0-Root-Dir"
//	cache := paths.LocalCachePath("")           // $TMPDIR/safe-launcher-local.config
package paths
