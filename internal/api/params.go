// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/samber/oops"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Params is the flat parameter bag of one API call.
type Params map[string]string

// Get returns the value for key, or "".
func (p Params) Get(key string) string {
	return p[key]
}

// ParseParams collects parameters from the query string and, for POST
// requests, from a form or JSON object body. Body values win over query
// values. JSON scalars are converted to their string form; nested values
// are ignored.
func ParseParams(r *http.Request, maxBytes int64) (Params, error) {
	params := Params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return params, nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(nil, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := mergeJSON(params, body); err != nil {
			return nil, err
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = body
		if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, oops.Code("API_BAD_REQUEST").With("content_type", mediaType).Wrap(err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	return params, nil
}

func mergeJSON(params Params, body io.Reader) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return oops.Code("API_BAD_REQUEST").With("content_type", "application/json").Wrap(err)
	}
	for k, v := range raw {
		if s, ok := scalarString(v); ok {
			params[k] = s
		}
	}
	return nil
}

func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
