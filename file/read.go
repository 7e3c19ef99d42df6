// Package file exposes asynchronous host file reads as futures.
package file

import (
	"errors"
	"os"
	"strings"

	"github.com/drake/hostbridge/future"
	pkgerrors "github.com/pkg/errors"
)

// EncodingUTF8 is the only encoding ReadFile requests.
const EncodingUTF8 = "utf8"

// ErrUnsupportedEncoding is delivered for any encoding other than UTF-8.
var ErrUnsupportedEncoding = errors.New("file: unsupported encoding")

// Reader is the host's asynchronous read primitive. cb is invoked once with
// either a non-nil error or the file contents.
type Reader interface {
	ReadFileAsync(path, encoding string, cb func(err error, contents string))
}

// ReadFile reads path as UTF-8 text. Errors reported by the host reject the
// returned future unchanged.
func ReadFile(r Reader, path string, opts ...future.Option) *future.Future[string] {
	return future.Wrap(func(cb future.Callback[string]) {
		r.ReadFileAsync(path, EncodingUTF8, cb)
	}, opts...)
}

// AsyncReader reads from the OS filesystem on a worker goroutine and hands
// each completion to Post, which is expected to run it on the event loop.
type AsyncReader struct {
	Post func(func())
}

var _ Reader = (*AsyncReader)(nil)

// ReadFileAsync implements Reader.
func (a *AsyncReader) ReadFileAsync(path, encoding string, cb func(err error, contents string)) {
	go func() {
		contents, err := readDecoded(path, encoding)
		a.Post(func() {
			cb(err, contents)
		})
	}()
}

func readDecoded(path, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "utf8", "utf-8":
	default:
		return "", pkgerrors.WithMessagef(ErrUnsupportedEncoding, "%q", encoding)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
