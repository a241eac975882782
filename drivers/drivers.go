// Package drivers is a convenience package that registers all built-in
// backend drivers. Import it with a blank identifier to make all drivers
// available:
//
//	import _ "github.com/nuln/jobfs/drivers"
package drivers

import (
	"github.com/nuln/jobfs"
	_ "github.com/nuln/jobfs/driver/hdfs"
	_ "github.com/nuln/jobfs/driver/local"
)

// Init ensures all built-in drivers are registered.
// This is called automatically by importing the package.
func Init() {}

// List returns the kinds of all registered backend drivers.
func List() []jobfs.Kind {
	return jobfs.Drivers()
}
