package download

import (
	"io"
	"net/http"
	"strings"

	"emperror.dev/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// decodeBody 按 Content-Encoding 解压响应体，解压后去掉该响应头
func decodeBody(res *http.Response) error {
	if res == nil || res.Body == nil || res.Body == http.NoBody {
		return nil
	}

	encoding := strings.ToLower(strings.TrimSpace(res.Header.Get("Content-Encoding")))
	var (
		reader io.ReadCloser
		err    error
	)
	switch encoding {
	case "gzip", "x-gzip":
		reader, err = gzip.NewReader(res.Body)
	case "deflate":
		reader, err = zlib.NewReader(res.Body)
	default:
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "decode %s body", encoding)
	}

	res.Body = &decodedBody{ReadCloser: reader, raw: res.Body}
	res.Header.Del("Content-Encoding")
	res.Header.Del("Content-Length")
	res.ContentLength = -1
	res.Uncompressed = true
	return nil
}

// decodedBody 关闭时同时关闭解压器和原始连接
type decodedBody struct {
	io.ReadCloser
	raw io.ReadCloser
}

func (b *decodedBody) Close() error {
	err := b.ReadCloser.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}
