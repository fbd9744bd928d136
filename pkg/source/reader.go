package source

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// Decompress peeks at the beginning of rc and, if the data is gzip or zstd
// compressed, returns a reader of the decompressed data. Closing the
// returned reader closes rc.
func Decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)

	header, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		_ = rc.Close()
		return nil, fmt.Errorf("peek header: %w", err)
	}

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b: // gzip
		gr, err := gzip.NewReader(br)
		if err != nil {
			_ = rc.Close()
			return nil, &CompressionError{Err: fmt.Errorf("create gzip reader: %w", err)}
		}
		return readCloser{Reader: &compressionErrReader{r: gr}, close: func() error {
			_ = gr.Close()
			return rc.Close()
		}}, nil

	case len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd: // zstd
		zr, err := zstd.NewReader(br)
		if err != nil {
			_ = rc.Close()
			return nil, &CompressionError{Err: fmt.Errorf("create zstd reader: %w", err)}
		}
		return readCloser{Reader: &compressionErrReader{r: zr}, close: func() error {
			zr.Close()
			return rc.Close()
		}}, nil
	}

	return readCloser{Reader: br, close: rc.Close}, nil
}

// CompressionError reports compressed data that cannot be decoded.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string { return "decompress mapping table: " + e.Err.Error() }

func (e *CompressionError) Unwrap() error { return e.Err }

// compressionErrReader marks decoder failures so that they can be told
// apart from I/O errors of the underlying source.
type compressionErrReader struct {
	r io.Reader
}

func (c *compressionErrReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF {
		err = &CompressionError{Err: err}
	}
	return n, err
}
