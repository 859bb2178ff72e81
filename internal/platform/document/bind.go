package document

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// Bind reads the request body and decodes it as a JSON object. Bodies that
// are empty, not JSON, or JSON of another shape bind to an empty Document;
// they are never rejected. The raw body is returned alongside and restored
// on the request for later readers. Only a failed read (for example a body
// over the configured limit) is reported as an error.
func Bind(c echo.Context) (Document, []byte, error) {
	req := c.Request()
	if req.Body == nil || req.Body == http.NoBody {
		return Document{}, nil, nil
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return Document{}, nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, raw, nil
	}
	return Decode(raw), raw, nil
}

// FromQuery flattens query parameters into a Document, keeping the last
// value of repeated keys.
func FromQuery(values url.Values) Document {
	out := make(Document, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		out[k] = vs[len(vs)-1]
	}
	return out
}
