package glb

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/lunfardo314/notary/util/badgerutil"
	"github.com/spf13/viper"
)

// OpenDB opens database of the node. The node must not be running
func OpenDB() *badger.DB {
	dir := viper.GetString("db.dir")
	Assertf(dir != "", "database directory not specified")
	FileMustExist(dir)
	Verbosef("database: %s", dir)

	db, err := badgerutil.OpenBadgerDB(dir)
	AssertNoError(err)
	return db
}
