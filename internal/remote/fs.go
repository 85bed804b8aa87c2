package remote

import (
	"io"
	"io/fs"

	"github.com/pkg/sftp"
)

// FS is the slice of a remote filesystem that deployment needs. Paths are
// slash separated.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string) error
	Create(path string) (io.WriteCloser, error)
}

type sftpFS struct {
	c *sftp.Client
}

func (s sftpFS) Stat(p string) (fs.FileInfo, error) { return s.c.Stat(p) }
func (s sftpFS) MkdirAll(p string) error            { return s.c.MkdirAll(p) }

func (s sftpFS) Create(p string) (io.WriteCloser, error) {
	return s.c.Create(p)
}
