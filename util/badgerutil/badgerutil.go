package badgerutil

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/util"
	"go.uber.org/zap"
)

var ErrTooManyAttempts = errors.New("too many attempts")

// zapAdaptor badger logs at info level are too verbose, they go to debug
type zapAdaptor struct {
	*zap.SugaredLogger
}

func (a zapAdaptor) Warningf(format string, args ...any) {
	a.Warnf(format, args...)
}

func (a zapAdaptor) Infof(format string, args ...any) {
	a.Debugf(format, args...)
}

func options(dir string, log []*zap.SugaredLogger) badger.Options {
	opts := badger.DefaultOptions(dir)
	if len(log) > 0 && log[0] != nil {
		return opts.WithLogger(zapAdaptor{log[0].Named("badger")})
	}
	return opts.WithLogger(nil)
}

// OpenBadgerDB opens existing or creates new database in the directory
func OpenBadgerDB(dir string, log ...*zap.SugaredLogger) (*badger.DB, error) {
	return badger.Open(options(dir, log))
}

func MustCreateOrOpenBadgerDB(dir string, log ...*zap.SugaredLogger) *badger.DB {
	err := os.MkdirAll(dir, 0o755)
	util.AssertNoError(err, "MustCreateOrOpenBadgerDB: ")
	ret, err := OpenBadgerDB(dir, log...)
	util.AssertNoError(err, "MustCreateOrOpenBadgerDB: ")
	return ret
}

// OpenInMemory opens database without persistence. Used in tests
func OpenInMemory(log ...*zap.SugaredLogger) (*badger.DB, error) {
	return badger.Open(options("", log).WithInMemory(true))
}

func MustOpenInMemory(log ...*zap.SugaredLogger) *badger.DB {
	ret, err := OpenInMemory(log...)
	util.AssertNoError(err, "MustOpenInMemory: ")
	return ret
}

// UpdateWithRetry runs fn in a fresh read-write transaction until it commits without conflict.
// Returns ErrTooManyAttempts when all attempts end with badger.ErrConflict
func UpdateWithRetry(db *badger.DB, maxAttempts int, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: transaction conflicted %d times", ErrTooManyAttempts, maxAttempts)
}

// Get returns nil, nil if key does not exist
func Get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// ForEachWithPrefix iterates key/value pairs with the prefix in key order until fun returns false
func ForEachWithPrefix(db *badger.DB, prefix []byte, fun func(key, value []byte) bool) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fun(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// KeyPrefix isolates key spaces of different namespaces (notary identities) and partitions in one database
func KeyPrefix(namespace string, partition byte) []byte {
	util.Assertf(len(namespace) < 256, "KeyPrefix: namespace too long")
	ret := make([]byte, 0, len(namespace)+2)
	ret = append(ret, byte(len(namespace)))
	ret = append(ret, namespace...)
	return append(ret, partition)
}

func ConcatBytes(data ...[]byte) []byte {
	size := 0
	for _, d := range data {
		size += len(d)
	}
	ret := make([]byte, 0, size)
	for _, d := range data {
		ret = append(ret, d...)
	}
	return ret
}
