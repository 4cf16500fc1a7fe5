package dump

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/volvulus/untwist/pkg/errors"
)

// ErrTooLarge is the cause attached to the decode error returned by
// DecodeReader when the input exceeds its byte limit.
var ErrTooLarge = stderrors.New("dump exceeds size limit")

// Envelope and record field names.
const (
	fieldVersion     = "version"
	fieldGeneratedAt = "generatedAt"
	fieldRecords     = "records"

	fieldID         = "id"
	fieldKind       = "kind"
	fieldAttributes = "attributes"
	fieldRelatesTo  = "relatesTo"
	fieldRel        = "rel"
)

// Decode parses data as a dump envelope.
//
// Decode fails with a DECODE_ERROR when data is empty or not valid JSON, is
// not a JSON object, lacks a supported version tag, or lacks a records
// array. Record-level type mismatches (an id that is neither string nor
// number, attributes that are not an object, and so on) also fail; the
// error then names the offending record.
func Decode(data []byte) (*Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeDecode, "dump is empty")
	}
	if !json.Valid(data) {
		return nil, errors.Wrap(errors.ErrCodeDecode, syntaxError(data), "dump is not valid JSON")
	}
	if data[0] != '{' {
		return nil, errors.New(errors.ErrCodeDecode, "dump must be a JSON object")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "dump must be a JSON object")
	}

	env := &Envelope{}

	version, err := decodeVersion(top[fieldVersion])
	if err != nil {
		return nil, err
	}
	env.Version = version

	if raw, ok := top[fieldGeneratedAt]; ok {
		ts, err := decodeTimestamp(raw)
		if err != nil {
			return nil, err
		}
		env.GeneratedAt = ts
	}

	raw, ok := top[fieldRecords]
	if !ok || isNull(raw) {
		return nil, errors.New(errors.ErrCodeDecode, "missing %q field", fieldRecords)
	}
	var elems []json.RawMessage
	if !isArray(raw) {
		return nil, errors.New(errors.ErrCodeDecode, "%q must be an array", fieldRecords)
	}
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "%q must be an array", fieldRecords)
	}

	env.Records = make([]RawRecord, 0, len(elems))
	for i, elem := range elems {
		rec, err := decodeRecord(i, elem)
		if err != nil {
			return nil, err
		}
		env.Records = append(env.Records, rec)
	}

	env.Extra = extraFields(top, fieldVersion, fieldGeneratedAt, fieldRecords)
	return env, nil
}

// DecodeReader reads at most limit bytes from r and decodes them.
// A non-positive limit means DefaultMaxBytes. Inputs over the limit fail
// with a DECODE_ERROR whose cause is ErrTooLarge.
func DecodeReader(r io.Reader, limit int64) (*Envelope, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read dump")
	}
	if int64(len(data)) > limit {
		return nil, errors.Wrap(errors.ErrCodeDecode, ErrTooLarge, "dump is larger than %d bytes", limit)
	}
	return Decode(data)
}

// IsSupportedVersion reports whether v is a version tag Decode accepts.
func IsSupportedVersion(v string) bool {
	return slices.Contains(SupportedVersions, v)
}

func decodeVersion(raw json.RawMessage) (string, error) {
	if raw == nil || isNull(raw) {
		return "", errors.New(errors.ErrCodeDecode, "missing %q field", fieldVersion)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", errors.New(errors.ErrCodeDecode, "%q must be a string", fieldVersion)
	}
	if !IsSupportedVersion(v) {
		return "", errors.New(errors.ErrCodeDecode, "unsupported dump version %q (supported: %s)",
			v, strings.Join(SupportedVersions, ", "))
	}
	return v, nil
}

func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, errors.Wrap(errors.ErrCodeDecode, err, "%q is not an RFC 3339 timestamp", fieldGeneratedAt)
		}
		return ts, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, errors.New(errors.ErrCodeDecode, "%q must be an RFC 3339 string or integer Unix seconds", fieldGeneratedAt)
	}
	return time.Unix(n, 0).UTC(), nil
}

func decodeRecord(index int, raw json.RawMessage) (RawRecord, error) {
	rec := RawRecord{Index: index}
	if !isObject(raw) {
		return rec, errors.New(errors.ErrCodeDecode, "records[%d] must be an object", index)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rec, errors.Wrap(errors.ErrCodeDecode, err, "records[%d] must be an object", index)
	}

	if raw, ok := fields[fieldID]; ok {
		id, typ, err := decodeID(raw)
		if err != nil {
			return rec, errors.New(errors.ErrCodeDecode, "records[%d].%s %s", index, fieldID, err)
		}
		rec.ID, rec.IDType = id, typ
	}

	fail := func(format string, args ...any) error {
		msg := fmt.Sprintf(format, args...)
		return errors.New(errors.ErrCodeDecode, "records[%d].%s", index, msg).WithRecord(rec.ID)
	}

	if raw, ok := fields[fieldKind]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &rec.Kind); err != nil {
			return rec, fail("%s must be a string", fieldKind)
		}
	}

	if raw, ok := fields[fieldAttributes]; ok && !isNull(raw) {
		attrs, err := decodeObject(raw)
		if err != nil {
			return rec, fail("%s must be an object", fieldAttributes)
		}
		rec.Attributes = attrs
	}

	if raw, ok := fields[fieldRelatesTo]; ok && !isNull(raw) {
		refs, err := decodeReferences(raw)
		if err != nil {
			return rec, fail("%s %s", fieldRelatesTo, err)
		}
		rec.RelatesTo = refs
	}

	rec.Extra = extraFields(fields, fieldID, fieldKind, fieldAttributes, fieldRelatesTo)
	return rec, nil
}

// decodeID accepts a JSON string or number. Numbers keep their literal text
// so that 10 and 10.0 stay distinct ids.
func decodeID(raw json.RawMessage) (string, IDType, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return "", IDNone, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", IDNone, fmt.Errorf("must be a string or number")
		}
		return s, IDString, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), IDNumber, nil
	}
	return "", IDNone, fmt.Errorf("must be a string or number")
}

func decodeReferences(raw json.RawMessage) ([]Reference, error) {
	if !isArray(raw) {
		return nil, fmt.Errorf("must be an array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("must be an array")
	}
	refs := make([]Reference, 0, len(elems))
	for i, elem := range elems {
		ref, err := decodeReference(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d] %w", i, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func decodeReference(raw json.RawMessage) (Reference, error) {
	if !isObject(raw) {
		id, typ, err := decodeID(raw)
		if err != nil || typ == IDNone {
			return Reference{}, fmt.Errorf("must be an id or an object")
		}
		return Reference{ID: id}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Reference{}, fmt.Errorf("must be an id or an object")
	}
	id, typ, err := decodeID(fields[fieldID])
	if err != nil || typ == IDNone {
		return Reference{}, fmt.Errorf("requires a string or number %q", fieldID)
	}
	ref := Reference{ID: id}
	if raw, ok := fields[fieldKind]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &ref.Kind); err != nil {
			return Reference{}, fmt.Errorf("%q must be a string", fieldKind)
		}
	}
	if raw, ok := fields[fieldRel]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &ref.Rel); err != nil {
			return Reference{}, fmt.Errorf("%q must be a string", fieldRel)
		}
	}
	if raw, ok := fields[fieldAttributes]; ok && !isNull(raw) {
		attrs, err := decodeObject(raw)
		if err != nil {
			return Reference{}, fmt.Errorf("%q must be an object", fieldAttributes)
		}
		ref.Attributes = attrs
	}
	return ref, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("not an object")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// extraFields returns fields minus the known keys, or nil when nothing is left.
func extraFields(fields map[string]json.RawMessage, known ...string) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for k, v := range fields {
		if slices.Contains(known, k) {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

func syntaxError(data []byte) error {
	var v any
	return json.Unmarshal(data, &v)
}

func isNull(raw json.RawMessage) bool   { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }
func isObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }
func isArray(raw json.RawMessage) bool  { return firstByte(raw) == '[' }

func firstByte(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
