package jobfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nuln/jobfs"
)

func TestBuildOptions(t *testing.T) {
	var d jobfs.Descriptor
	assert.Empty(t, jobfs.BuildOptions(d), "omitted fields must be absent, not empty")

	d.Host = "localhost"
	d.Port = "9999"
	assert.Equal(t, jobfs.Options{"host": "localhost", "port": "9999"}, jobfs.BuildOptions(d))

	d.User = "me"
	d.Password = "password"
	assert.Equal(t, jobfs.Options{
		"host":     "localhost",
		"port":     "9999",
		"user":     "me",
		"password": "password",
	}, jobfs.BuildOptions(d))
}

func TestBuildOptions_PathFallback(t *testing.T) {
	d := jobfs.Descriptor{Path: "hdfs://0.0.0.0:6666/whatever/file/is.file"}
	assert.Equal(t, jobfs.Options{"host": "0.0.0.0", "port": "6666"}, jobfs.BuildOptions(d))

	// Explicit fields win over the address embedded in Path.
	d.Host = "localhost"
	d.Port = "9999"
	assert.Equal(t, jobfs.Options{"host": "localhost", "port": "9999"}, jobfs.BuildOptions(d))

	// Only the missing field is filled in.
	d.Port = ""
	assert.Equal(t, jobfs.Options{"host": "localhost", "port": "6666"}, jobfs.BuildOptions(d))

	// A bare path contributes nothing.
	d = jobfs.Descriptor{Path: "/just/a/path"}
	assert.Empty(t, jobfs.BuildOptions(d))
}

func TestDescriptor_Kind(t *testing.T) {
	assert.Equal(t, jobfs.KindDFS, jobfs.Descriptor{Path: "hdfs:///x"}.Kind())
	assert.Equal(t, jobfs.KindLocal, jobfs.Descriptor{Host: "nn", Path: "file:///x"}.Kind())
	assert.Equal(t, jobfs.KindDFS, jobfs.Descriptor{Host: "nn", Path: "/x"}.Kind())
	assert.Equal(t, jobfs.KindLocal, jobfs.Descriptor{Path: "/x"}.Kind())
}

func TestOptions(t *testing.T) {
	o := jobfs.Options{}
	o.Set(jobfs.OptHost, "")
	_, ok := o[jobfs.OptHost]
	assert.False(t, ok, "empty values are not stored")

	o.Set(jobfs.OptHost, "h")
	o.Set(jobfs.OptPort, "1")
	assert.Equal(t, "h", o.Host())
	assert.Equal(t, "1", o.Port())
	assert.Equal(t, "", o.User())
	assert.Equal(t, "", o.Password())

	c := o.Clone()
	c.Set(jobfs.OptHost, "other")
	assert.Equal(t, "h", o.Host())

	var nilOpts jobfs.Options
	assert.NotNil(t, nilOpts.Clone())
}

func TestOptionsFromAddress(t *testing.T) {
	addr, err := jobfs.ParseAddress("hdfs://0.0.0.0:/no/port/test.file")
	assert.NoError(t, err)
	assert.Equal(t, jobfs.Options{"host": "0.0.0.0"}, jobfs.OptionsFromAddress(addr))
}
