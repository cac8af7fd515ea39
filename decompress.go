package jsonapikit

import (
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// readBody reads and closes the response body, undoing the content encoding.
// Accept-Encoding is set explicitly, so net/http leaves decompression to us.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	reader, err := decodingReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if errors.Is(err, io.EOF) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}
	return io.ReadAll(reader)
}

func decodingReader(encoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		return gzip.NewReader(body)
	case "deflate":
		return zlib.NewReader(body)
	case "br":
		return brotli.NewReader(body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
