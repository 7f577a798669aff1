// Package errors defines the BrandGuard error taxonomy as samber/oops codes.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	// CodeReferenceLoadFailure marks a single reference image that could not be read,
	// decoded or encoded during a build. The file is skipped.
	CodeReferenceLoadFailure Code = "reference.load.failure"

	// CodeSnapshotLoadFailure marks a persisted snapshot that is missing, corrupt or inconsistent.
	CodeSnapshotLoadFailure  Code = "snapshot.load.failure"
	CodeSnapshotWriteFailure Code = "snapshot.write.failure"

	CodeSearchArgumentInvalid Code = "search.argument.invalid"
	CodeSearchUnavailable     Code = "search.index.unavailable"

	CodeEncoderInputInvalid     Code = "encoder.encode.invalid"
	CodeEncoderEncodeFailure    Code = "encoder.encode.failure"
	CodeEncoderTimeout          Code = "encoder.encode.timeout"
	CodeEncoderUnsupported      Code = "encoder.backend.unsupported"
	CodeIndexBackendUnsupported Code = "index.backend.unsupported"

	CodeStorageDatabaseFailure Code = "storage.database.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeHintsUpstreamFailure Code = "hints.upstream.failure"
	CodeInternalFailure      Code = "server.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldVersion(value string) Attr {
	return Field("snapshot_version", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the oops code carried by err, or "". When oops errors are
// nested, oops reports the deepest code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsLoadError(err error) bool {
	return HasCode(err, CodeReferenceLoadFailure)
}

func IsSnapshotLoadFailure(err error) bool {
	return HasCode(err, CodeSnapshotLoadFailure)
}

func IsSearchUnavailable(err error) bool {
	return HasCode(err, CodeSearchUnavailable)
}

// IsEncoderFailure reports whether err came from the embedding boundary.
func IsEncoderFailure(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "encoder.")
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

// HTTPStatus maps an error to the response status used by the API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsSearchUnavailable(err):
		return http.StatusServiceUnavailable
	case HasCode(err, CodeEncoderInputInvalid):
		return http.StatusUnprocessableEntity
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case HasCode(err, CodeHintsUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
