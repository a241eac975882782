// Package jobfs provides uniform file access over the storage backends a
// batch job reads from and writes to.
//
// Files are named by addresses of the form scheme://[host[:port]]/path.
// [ParseAddress] resolves the scheme to a backend [Kind] and splits out
// host, port and path. A [Hub] turns an address or a [Descriptor] into a
// connected [Backend], keeping one connection per (host, port) so that
// concurrent workers share it.
//
// # Supported Drivers
//
//   - file://: local filesystem via afero (import _ "github.com/nuln/jobfs/driver/local")
//   - hdfs://: HDFS namenode via rclone (import _ "github.com/nuln/jobfs/driver/hdfs")
//
// # Quick Start
//
//	import (
//	    "github.com/nuln/jobfs"
//	    _ "github.com/nuln/jobfs/drivers"
//	)
//
//	hub := jobfs.NewHub()
//	defer hub.Close()
//
//	f, err := hub.OpenFile(ctx, "hdfs://namenode:8020/jobs/42/part-00000", jobfs.ReadMode)
//
// # Globbing
//
// [Match] implements the wildcard language used by Backend.Glob: '*'
// matches any run of characters (including '/') and '?' exactly one.
package jobfs
