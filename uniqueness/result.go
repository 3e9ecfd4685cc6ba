package uniqueness

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/lunfardo314/notary/ledger"
	"github.com/lunfardo314/notary/util"
	"golang.org/x/exp/slices"
)

type ResultKind byte

const (
	ResultSuccess = ResultKind(iota)
	ResultInputStateConflict
	ResultReferenceStateConflict
	ResultInputStateUnknown
	ResultTimeWindowOutOfBounds
	ResultUnhandledError
)

var resultKindNames = map[ResultKind]string{
	ResultSuccess:                "Success",
	ResultInputStateConflict:     "InputStateConflict",
	ResultReferenceStateConflict: "ReferenceStateConflict",
	ResultInputStateUnknown:      "InputStateUnknown",
	ResultTimeWindowOutOfBounds:  "TimeWindowOutOfBounds",
	ResultUnhandledError:         "UnhandledError",
}

func (k ResultKind) String() string {
	if ret, ok := resultKindNames[k]; ok {
		return ret
	}
	return fmt.Sprintf("ResultKind(%d)", k)
}

func ResultKindFromString(s string) (ResultKind, error) {
	for k, name := range resultKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown result kind '%s'", s)
}

// AllResultKinds in order of their codes
func AllResultKinds() []ResultKind {
	return []ResultKind{
		ResultSuccess,
		ResultInputStateConflict,
		ResultReferenceStateConflict,
		ResultInputStateUnknown,
		ResultTimeWindowOutOfBounds,
		ResultUnhandledError,
	}
}

// Result is a tagged union. Which fields are meaningful depends on Kind:
//   - ResultSuccess: CommitTimestamp
//   - ResultInputStateConflict, ResultReferenceStateConflict, ResultInputStateUnknown: States
//   - ResultTimeWindowOutOfBounds: LowerBound and/or UpperBound (the violated ones), EvaluatedAt
//   - ResultUnhandledError: ErrorDetail
type Result struct {
	Kind            ResultKind
	CommitTimestamp time.Time
	States          []ledger.StateRef
	LowerBound      time.Time
	UpperBound      time.Time
	EvaluatedAt     time.Time
	ErrorDetail     string
}

// normalizeTime strips monotonic reading and location. Any time in years 0000..9999 survives serialization
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.Round(0).UTC()
}

func Success(commitTimestamp time.Time) Result {
	return Result{Kind: ResultSuccess, CommitTimestamp: normalizeTime(commitTimestamp)}
}

func InputStateConflict(states ...ledger.StateRef) Result {
	return Result{Kind: ResultInputStateConflict, States: ledger.SortedUnique(states)}
}

func ReferenceStateConflict(states ...ledger.StateRef) Result {
	return Result{Kind: ResultReferenceStateConflict, States: ledger.SortedUnique(states)}
}

func InputStateUnknown(states ...ledger.StateRef) Result {
	return Result{Kind: ResultInputStateUnknown, States: ledger.SortedUnique(states)}
}

// TimeWindowOutOfBounds echoes only the violated bounds of the window
func TimeWindowOutOfBounds(tw TimeWindow, violation TimeWindowViolation, evaluatedAt time.Time) Result {
	ret := Result{Kind: ResultTimeWindowOutOfBounds, EvaluatedAt: normalizeTime(evaluatedAt)}
	if violation.LowerBound() {
		ret.LowerBound = normalizeTime(tw.LowerBound)
	}
	if violation.UpperBound() {
		ret.UpperBound = normalizeTime(tw.UpperBound)
	}
	return ret
}

func UnhandledError(format string, args ...any) Result {
	return Result{Kind: ResultUnhandledError, ErrorDetail: fmt.Sprintf(format, args...)}
}

func (r *Result) IsSuccess() bool {
	return r.Kind == ResultSuccess
}

// IsPermanent returns true for deterministic outcomes which are recorded and replayed
func (r *Result) IsPermanent() bool {
	return r.Kind != ResultUnhandledError
}

func (r *Result) Clone() Result {
	ret := *r
	ret.States = slices.Clone(r.States)
	return ret
}

func (r *Result) String() string {
	switch r.Kind {
	case ResultSuccess:
		return fmt.Sprintf("%s(%s)", r.Kind, r.CommitTimestamp.Format(time.RFC3339Nano))
	case ResultInputStateConflict, ResultReferenceStateConflict, ResultInputStateUnknown:
		return fmt.Sprintf("%s(%s)", r.Kind, strings.Join(ledger.StateRefsStrings(r.States), ", "))
	case ResultTimeWindowOutOfBounds:
		tw := TimeWindow{LowerBound: r.LowerBound, UpperBound: r.UpperBound}
		return fmt.Sprintf("%s(violated: %s, evaluated at: %s)", r.Kind, tw.String(), r.EvaluatedAt.Format(time.RFC3339Nano))
	case ResultUnhandledError:
		return fmt.Sprintf("%s(%s)", r.Kind, r.ErrorDetail)
	}
	return r.Kind.String()
}

const (
	flagLowerBound = byte(1 << iota)
	flagUpperBound
)

var ErrWrongResultData = errors.New("wrong result data")

// MaxStatesInResult states listed in a rejection are a subset of the request's states
const MaxStatesInResult = MaxStatesPerRequest

// Bytes serializes the result. The format is:
// kind byte, then by kind:
//   - commit timestamp
//   - uint16 number of states followed by 36-byte state references
//   - flags byte, optional lower and upper bounds and the evaluation time
//
// Times are encoded with AppendTime
//   - uint16 length of the error detail followed by its bytes
func (r *Result) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(r.Kind))
	switch r.Kind {
	case ResultSuccess:
		writeTime(&buf, r.CommitTimestamp)
	case ResultInputStateConflict, ResultReferenceStateConflict, ResultInputStateUnknown:
		if len(r.States) > MaxStatesInResult {
			return nil, fmt.Errorf("%w: %d states in the result, maximum is %d", ErrWrongResultData, len(r.States), MaxStatesInResult)
		}
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(r.States)))
		for i := range r.States {
			buf.Write(r.States[i][:])
		}
	case ResultTimeWindowOutOfBounds:
		var flags byte
		if !r.LowerBound.IsZero() {
			flags |= flagLowerBound
		}
		if !r.UpperBound.IsZero() {
			flags |= flagUpperBound
		}
		buf.WriteByte(flags)
		if flags&flagLowerBound != 0 {
			writeTime(&buf, r.LowerBound)
		}
		if flags&flagUpperBound != 0 {
			writeTime(&buf, r.UpperBound)
		}
		writeTime(&buf, r.EvaluatedAt)
	case ResultUnhandledError:
		detail := r.ErrorDetail
		if len(detail) > math.MaxUint16 {
			detail = detail[:math.MaxUint16]
		}
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(detail)))
		buf.WriteString(detail)
	}
	return buf.Bytes(), nil
}

// MustBytes panics if the result cannot be serialized
func (r *Result) MustBytes() []byte {
	ret, err := r.Bytes()
	util.AssertNoError(err)
	return ret
}

func ResultFromBytes(data []byte) (Result, error) {
	rdr := bytes.NewReader(data)
	kindByte, err := rdr.ReadByte()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
	}
	ret := Result{Kind: ResultKind(kindByte)}
	switch ret.Kind {
	case ResultSuccess:
		if ret.CommitTimestamp, err = readTime(rdr); err != nil {
			return Result{}, err
		}
	case ResultInputStateConflict, ResultReferenceStateConflict, ResultInputStateUnknown:
		var n uint16
		if err = binary.Read(rdr, binary.BigEndian, &n); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
		}
		if n > 0 {
			ret.States = make([]ledger.StateRef, n)
		}
		for i := range ret.States {
			if _, err = io.ReadFull(rdr, ret.States[i][:]); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
			}
		}
	case ResultTimeWindowOutOfBounds:
		var flags byte
		if flags, err = rdr.ReadByte(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
		}
		if flags&flagLowerBound != 0 {
			if ret.LowerBound, err = readTime(rdr); err != nil {
				return Result{}, err
			}
		}
		if flags&flagUpperBound != 0 {
			if ret.UpperBound, err = readTime(rdr); err != nil {
				return Result{}, err
			}
		}
		if ret.EvaluatedAt, err = readTime(rdr); err != nil {
			return Result{}, err
		}
	case ResultUnhandledError:
		var n uint16
		if err = binary.Read(rdr, binary.BigEndian, &n); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
		}
		detail := make([]byte, n)
		if _, err = io.ReadFull(rdr, detail); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
		}
		ret.ErrorDetail = string(detail)
	default:
		return Result{}, fmt.Errorf("%w: unknown result kind %d", ErrWrongResultData, kindByte)
	}
	if rdr.Len() != 0 {
		return Result{}, fmt.Errorf("%w: %d trailing bytes", ErrWrongResultData, rdr.Len())
	}
	return ret, nil
}

// TimeBytesLength is the length of the time encoding: int64 unix seconds and uint32 nanoseconds
const TimeBytesLength = 12

// AppendTime appends the time to the buffer. Unlike unix nanoseconds, the encoding
// is not limited to years 1678..2262
func AppendTime(buf []byte, t time.Time) []byte {
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Unix()))
	return binary.BigEndian.AppendUint32(buf, uint32(t.Nanosecond()))
}

func TimeFromBytes(data []byte) (time.Time, error) {
	if len(data) != TimeBytesLength {
		return time.Time{}, fmt.Errorf("%w: wrong time data length %d", ErrWrongResultData, len(data))
	}
	sec := int64(binary.BigEndian.Uint64(data[:8]))
	nsec := binary.BigEndian.Uint32(data[8:])
	if nsec >= uint32(time.Second) {
		return time.Time{}, fmt.Errorf("%w: wrong nanoseconds %d", ErrWrongResultData, nsec)
	}
	return time.Unix(sec, int64(nsec)).UTC(), nil
}

func writeTime(buf *bytes.Buffer, t time.Time) {
	buf.Write(AppendTime(nil, t))
}

func readTime(rdr *bytes.Reader) (time.Time, error) {
	var data [TimeBytesLength]byte
	if _, err := io.ReadFull(rdr, data[:]); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrWrongResultData, err)
	}
	return TimeFromBytes(data[:])
}
