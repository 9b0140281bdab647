package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Decode reads a JSON or URL-encoded request body into v.
func Decode(r *http.Request, v any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeForm {
		return decodeForm(r, v)
	}
	return DecodeJSON(r, v)
}

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close() //nolint:errcheck
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return bodyError(err)
	}
	return nil
}

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("json")
	d.IgnoreUnknownKeys(false)
	d.RegisterConverter(time.Time{}, func(s string) reflect.Value {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
	return d
}

// decodeForm maps URL-encoded fields onto v using its JSON field names.
// Repeated keys fill slice fields.
func decodeForm(r *http.Request, v any) error {
	if err := r.ParseForm(); err != nil {
		return bodyError(err)
	}
	if err := formDecoder.Decode(v, r.PostForm); err != nil {
		return formError(err)
	}
	return nil
}

func formError(err error) error {
	problem := err
	var multi schema.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		keys := make([]string, 0, len(multi))
		for k := range multi {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		problem = multi[keys[0]]
	}

	msg := "invalid request payload"
	var unknown schema.UnknownKeyError
	var conv schema.ConversionError
	switch {
	case errors.As(problem, &unknown):
		msg = fmt.Sprintf("unknown field %q", unknown.Key)
	case errors.As(problem, &conv):
		msg = fmt.Sprintf("field %q has an invalid value", conv.Key)
	}
	return &Error{Status: http.StatusBadRequest, Code: "invalid_request", Message: msg, Err: err}
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return &Error{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large", Message: "request body too large", Err: err}
	case errors.Is(err, io.EOF):
		return BadRequest("request body is empty")
	default:
		return &Error{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request payload", Err: err}
	}
}

// URLParamUUID parses a chi URL parameter as a UUID.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &Error{Status: http.StatusBadRequest, Code: "invalid_id", Message: fmt.Sprintf("%s must be a valid UUID", name), Err: err}
	}
	return id, nil
}

// ClientIP returns the caller address. RealIP middleware has already folded
// trusted proxy headers into RemoteAddr, so headers are not consulted here.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserAgent returns the request user agent string.
func UserAgent(r *http.Request) string {
	return r.Header.Get("User-Agent")
}
