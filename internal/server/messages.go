// Conversions between engine types and Struct messages
package server

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
)

// Message field names
const (
	fieldBarcode    = "barcode"
	fieldPath       = "path"
	fieldFrom       = "from"
	fieldTo         = "to"
	fieldOutcome    = "outcome"
	fieldConflict   = "conflict"
	fieldApplied    = "applied"
	fieldRolledBack = "rolled_back"
	fieldChildren   = "children"
	fieldBarcodes   = "barcodes"
)

func stringList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// pathField reads a list of strings. A missing field is the empty path.
func pathField(msg *structpb.Struct, key string) (location.Path, error) {
	v, ok := msg.GetFields()[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
	p := make(location.Path, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		seg, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s must be a list of strings", key)
		}
		p = append(p, seg.StringValue)
	}
	return p, nil
}

func stringsField(msg *structpb.Struct, key string) []string {
	var out []string
	for _, item := range msg.GetFields()[key].GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

func stringField(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func resultMessage(res assign.Result) (*structpb.Struct, error) {
	m := map[string]any{
		fieldOutcome: res.Outcome.String(),
		fieldBarcode: res.Barcode,
		fieldPath:    stringList(res.Path),
	}
	if res.Conflict != nil {
		m[fieldConflict] = stringList(res.Conflict)
	}
	if res.Outcome == assign.PersistFailed {
		m[fieldApplied] = res.Applied.String()
		m[fieldRolledBack] = res.RolledBack
	}
	return structpb.NewStruct(m)
}

func resultFromMessage(msg *structpb.Struct) assign.Result {
	res := assign.Result{
		Outcome:    assign.ParseOutcome(stringField(msg, fieldOutcome)),
		Barcode:    stringField(msg, fieldBarcode),
		Applied:    assign.ParseOutcome(stringField(msg, fieldApplied)),
		RolledBack: msg.GetFields()[fieldRolledBack].GetBoolValue(),
	}
	res.Path, _ = pathField(msg, fieldPath)
	res.Conflict, _ = pathField(msg, fieldConflict)
	return res
}

// codeFor maps engine and gateway errors to gRPC status codes
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, assign.ErrInvalidPath), errors.Is(err, assign.ErrInvalidBarcode):
		return codes.InvalidArgument
	case errors.Is(err, assign.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, assign.ErrNotFoundAtSource):
		return codes.FailedPrecondition
	case errors.Is(err, assign.ErrPersistFailed), errors.Is(err, persist.ErrIO):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// statusError converts an engine error to a status carrying the result
// as a detail, so clients see Applied and RolledBack on PersistFailed
func statusError(err error, res assign.Result) error {
	st := status.New(codeFor(err), err.Error())
	if detail, derr := resultMessage(res); derr == nil {
		if withDetail, werr := st.WithDetails(detail); werr == nil {
			st = withDetail
		}
	}
	return st.Err()
}

// sentinelFor is the inverse of codeFor, refined by the outcome carried in
// the status detail
func sentinelFor(code codes.Code, outcome assign.Outcome) error {
	switch outcome {
	case assign.InvalidPath:
		return assign.ErrInvalidPath
	case assign.InvalidBarcode:
		return assign.ErrInvalidBarcode
	case assign.NotFound:
		return assign.ErrNotFound
	case assign.NotFoundAtSource:
		return assign.ErrNotFoundAtSource
	case assign.PersistFailed:
		return assign.ErrPersistFailed
	case assign.CorruptState:
		return persist.ErrCorruptState
	case assign.InvariantViolation:
		return assign.ErrInvariantViolation
	}
	switch code {
	case codes.InvalidArgument:
		return assign.ErrInvalidPath
	case codes.NotFound:
		return assign.ErrNotFound
	case codes.FailedPrecondition:
		return assign.ErrNotFoundAtSource
	case codes.Unavailable:
		return assign.ErrPersistFailed
	}
	return nil
}
