package instagram

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	errs "igfeed/pkg/errors"
)

// expectation selects which statuses count as success for a request
type expectation int

const (
	// expectOK accepts 2xx; 404 is not_found
	expectOK expectation = iota
	// expectRedirect accepts 3xx; 400 and 404 are not_found
	expectRedirect
	// expectLogin accepts 2xx; anything else is auth_required
	expectLogin
)

// classifyStatus maps a response status to an error, or nil when the status
// is what the operation expects
func classifyStatus(op string, want expectation, code int, body []byte) error {
	success := code >= 200 && code < 300
	if want == expectRedirect {
		success = code >= 300 && code < 400
	}
	if success {
		return nil
	}

	switch {
	case want == expectLogin:
		return errs.New(errs.ErrorTypeAuthRequired, "%s: login rejected with status %d", op, code).WithResponse(code, body)
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "%s: not found", op).WithResponse(code, body)
	case want == expectRedirect && code == http.StatusBadRequest:
		return errs.New(errs.ErrorTypeNotFound, "%s: not found", op).WithResponse(code, body)
	default:
		return errs.New(errs.ErrorTypeTransient, "%s: unexpected status %d", op, code).WithResponse(code, body)
	}
}

// decodeKey decodes the value found at a dotted key path of a JSON object
// body into v. A body that is not a JSON object, or lacks the path, is a
// malformed_response error. A body flagged requires_to_login is auth_required.
func decodeKey(op string, code int, body []byte, keyPath string, v interface{}) error {
	top, err := decodeObject(op, code, body)
	if err != nil {
		return err
	}

	var (
		cur     = top
		current json.RawMessage
	)
	keys := strings.Split(keyPath, ".")
	for i, key := range keys {
		raw, ok := cur[key]
		if !ok || isNull(raw) {
			return errs.New(errs.ErrorTypeMalformedResponse, "%s: response lacks %q", op, keyPath).WithResponse(code, body)
		}
		current = raw
		if i == len(keys)-1 {
			break
		}
		cur = nil
		if err := json.Unmarshal(raw, &cur); err != nil {
			return errs.Wrap(errs.ErrorTypeMalformedResponse, err, "%s: %q is not an object", op, key).WithResponse(code, body)
		}
	}

	if err := json.Unmarshal(current, v); err != nil {
		return errs.Wrap(errs.ErrorTypeMalformedResponse, err, "%s: decoding %q", op, keyPath).WithResponse(code, body)
	}
	return nil
}

// decodeBody decodes the whole body into v
func decodeBody(op string, code int, body []byte, v interface{}) error {
	if _, err := decodeObject(op, code, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Wrap(errs.ErrorTypeMalformedResponse, err, "%s: decoding response", op).WithResponse(code, body)
	}
	return nil
}

// decodeObject checks that body is a JSON object not flagged requires_to_login
func decodeObject(op string, code int, body []byte) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedResponse, err, "%s: response is not a JSON object", op).WithResponse(code, body)
	}
	if flag, ok := top["requires_to_login"]; ok && bytes.Equal(bytes.TrimSpace(flag), []byte("true")) {
		return nil, errs.New(errs.ErrorTypeAuthRequired, "%s: content requires a logged in session", op).WithResponse(code, body)
	}
	return top, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
