package global

const (
	ConfigFileName = "notary"
	EnvPrefix      = "NOTARY"

	DefaultDBDir       = "notarydb"
	DefaultMaxAttempts = 5
	DefaultBatchSize   = 1000
	DefaultAPIPort     = 8000
)
