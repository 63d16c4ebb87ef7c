// Package blob defines the upload/download/delete contract used for avatars
// and banners, plus a local-filesystem implementation.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the named object does not exist.
var ErrNotFound = errors.New("blob not found")

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is the opaque blob service the handlers talk to. Implementations must
// treat bucket and prefix as an opaque namespace; callers own naming.
type Store interface {
	// Put stores data under bucket/prefix with a generated file name and
	// returns that name. Subsequent Get and Delete calls address the object
	// as prefix + "/" + name.
	Put(ctx context.Context, bucket, prefix string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, bucket, path string) (*Object, error)
	Delete(ctx context.Context, bucket, path string) error
}
