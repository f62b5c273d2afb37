package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// multipartMemory bounds the in-memory part of a multipart form; larger
// files spill to temporary files that are removed before returning.
const multipartMemory = 8 << 20

var errNotObject = errors.New("json body must be an object")

// readInput collects all request input: query parameters overlaid by body
// fields. It returns the merged mapping and the body size in bytes.
func readInput(w http.ResponseWriter, r *http.Request, maxBytes int64) (map[string]any, int64, error) {
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, body, maxBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, int64(len(raw)), fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, tooLarge.Limit)
		}
		return nil, int64(len(raw)), fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}

	input := valuesToMap(r.URL.Query())

	fields, err := decodeBody(r.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, int64(len(raw)), err
	}
	for k, v := range fields {
		input[k] = v
	}
	return input, int64(len(raw)), nil
}

// decodeBody parses raw according to the request content type.
func decodeBody(contentType string, raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(raw)
	case mediaType == "application/x-www-form-urlencoded":
		vals, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: form body: %w", ErrBadRequest, err)
		}
		return valuesToMap(vals), nil
	case mediaType == "multipart/form-data":
		return decodeMultipart(raw, params["boundary"])
	case mediaType == "" && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")):
		return decodeJSON(raw)
	default:
		return nil, nil
	}
}

func decodeJSON(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %w", ErrBadRequest, err)
	}
	// Anything after the first value, including a stray } or ], is malformed.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: malformed json: trailing data after value", ErrBadRequest)
	}

	switch obj := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, errNotObject)
	}
}

func decodeMultipart(raw []byte, boundary string) (map[string]any, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart body without boundary", ErrBadRequest)
	}
	form, err := multipart.NewReader(bytes.NewReader(raw), boundary).ReadForm(multipartMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: multipart body: %w", ErrBadRequest, err)
	}
	defer func() { _ = form.RemoveAll() }()

	out := valuesToMap(form.Value)
	for name, headers := range form.File {
		files := make([]any, 0, len(headers))
		for _, fh := range headers {
			files = append(files, map[string]any{
				"filename":     fh.Filename,
				"size":         fh.Size,
				"content_type": fh.Header.Get("Content-Type"),
			})
		}
		if len(files) == 1 {
			out[name] = files[0]
		} else {
			out[name] = files
		}
	}
	return out, nil
}

// valuesToMap flattens single values to strings and keeps repeated keys as lists.
func valuesToMap(vals map[string][]string) map[string]any {
	out := make(map[string]any, len(vals))
	for k, vs := range vals {
		switch len(vs) {
		case 0:
			out[k] = ""
		case 1:
			out[k] = vs[0]
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[k] = list
		}
	}
	return out
}
