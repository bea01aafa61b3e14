package pkg

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrInvalidContentType = errors.New("invalid content type")

// ReadJSONBody decodes a JSON request body into v.
func ReadJSONBody(r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), ContentType.JSON) {
		return ErrInvalidContentType
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}

// ReadOptionalJSONBody is ReadJSONBody for requests where the body may be left out.
// An empty body, chunked or not, leaves v untouched and reports false.
func ReadOptionalJSONBody(r *http.Request, v any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return false, nil
	}

	body := bufio.NewReader(r.Body)
	if _, err := body.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("read body: %w", err)
	}

	r.Body = struct {
		io.Reader
		io.Closer
	}{body, r.Body}
	return true, ReadJSONBody(r, v)
}
