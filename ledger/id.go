package ledger

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"
)

const (
	TransactionIDLength = 32
	OutputIndexLength   = 4
	StateRefLength      = TransactionIDLength + OutputIndexLength
)

type (
	// TransactionID is blake2b-256 hash of the transaction bytes
	TransactionID [TransactionIDLength]byte
	// StateRef :
	// [0:32] - ID of the transaction which produced the state
	// [32:36] - output index, big endian
	StateRef [StateRefLength]byte
)

var NilTransactionID TransactionID

func HashTransactionBytes(txBytes []byte) TransactionID {
	return blake2b.Sum256(txBytes)
}

func TransactionIDFromBytes(data []byte) (ret TransactionID, err error) {
	if len(data) != TransactionIDLength {
		err = fmt.Errorf("TransactionIDFromBytes: wrong data length %d", len(data))
		return
	}
	copy(ret[:], data)
	return
}

func TransactionIDFromHexString(str string) (ret TransactionID, err error) {
	var data []byte
	if data, err = hex.DecodeString(str); err != nil {
		return
	}
	ret, err = TransactionIDFromBytes(data)
	return
}

// RandomTransactionID for testing
func RandomTransactionID() (ret TransactionID) {
	_, _ = rand.Read(ret[:])
	return
}

func (txid TransactionID) Bytes() []byte {
	return txid[:]
}

func (txid TransactionID) String() string {
	return hex.EncodeToString(txid[:])
}

func (txid TransactionID) StringShort() string {
	return hex.EncodeToString(txid[:6]) + ".."
}

func (txid TransactionID) MarshalText() ([]byte, error) {
	return []byte(txid.String()), nil
}

func (txid *TransactionID) UnmarshalText(data []byte) error {
	var err error
	*txid, err = TransactionIDFromHexString(string(data))
	return err
}

func NewStateRef(txid TransactionID, idx uint32) (ret StateRef) {
	copy(ret[:TransactionIDLength], txid[:])
	binary.BigEndian.PutUint32(ret[TransactionIDLength:], idx)
	return
}

func StateRefFromBytes(data []byte) (ret StateRef, err error) {
	if len(data) != StateRefLength {
		err = fmt.Errorf("StateRefFromBytes: wrong data length %d", len(data))
		return
	}
	copy(ret[:], data)
	return
}

func StateRefFromHexString(str string) (ret StateRef, err error) {
	var data []byte
	if data, err = hex.DecodeString(str); err != nil {
		return
	}
	ret, err = StateRefFromBytes(data)
	return
}

// ParseStateRef accepts '<hex txid>:<index>' or the hex encoded state reference bytes
func ParseStateRef(str string) (StateRef, error) {
	txidStr, idxStr, found := strings.Cut(str, ":")
	if !found {
		return StateRefFromHexString(str)
	}
	txid, err := TransactionIDFromHexString(txidStr)
	if err != nil {
		return StateRef{}, fmt.Errorf("ParseStateRef: %w", err)
	}
	idx, err := strconv.ParseUint(idxStr, 10, 32)
	if err != nil {
		return StateRef{}, fmt.Errorf("ParseStateRef: wrong output index: %w", err)
	}
	return NewStateRef(txid, uint32(idx)), nil
}

func (ref StateRef) TransactionID() (ret TransactionID) {
	copy(ret[:], ref[:TransactionIDLength])
	return
}

func (ref StateRef) Index() uint32 {
	return binary.BigEndian.Uint32(ref[TransactionIDLength:])
}

func (ref StateRef) Bytes() []byte {
	return ref[:]
}

func (ref StateRef) String() string {
	return fmt.Sprintf("%s:%d", ref.TransactionID().String(), ref.Index())
}

func (ref StateRef) StringShort() string {
	return fmt.Sprintf("%s:%d", ref.TransactionID().StringShort(), ref.Index())
}

func (ref StateRef) StringHex() string {
	return hex.EncodeToString(ref[:])
}

func (ref StateRef) MarshalText() ([]byte, error) {
	return []byte(ref.String()), nil
}

func (ref *StateRef) UnmarshalText(data []byte) error {
	var err error
	*ref, err = ParseStateRef(string(data))
	return err
}

func CompareStateRefs(ref1, ref2 StateRef) int {
	return bytes.Compare(ref1[:], ref2[:])
}

func LessStateRef(ref1, ref2 StateRef) bool {
	return CompareStateRefs(ref1, ref2) < 0
}

// SortedUnique returns new sorted slice without duplicates. Input is not modified
func SortedUnique(refs []StateRef) []StateRef {
	if len(refs) == 0 {
		return nil
	}
	ret := slices.Clone(refs)
	slices.SortFunc(ret, CompareStateRefs)
	return slices.Compact(ret)
}

// ParseStateRefs parses list of strings in any of the forms accepted by ParseStateRef
func ParseStateRefs(lst []string) ([]StateRef, error) {
	ret := make([]StateRef, 0, len(lst))
	for _, s := range lst {
		ref, err := ParseStateRef(s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ref)
	}
	return ret, nil
}

func StateRefsStrings(refs []StateRef) []string {
	ret := make([]string, len(refs))
	for i := range refs {
		ret[i] = refs[i].String()
	}
	return ret
}
