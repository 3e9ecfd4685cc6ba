package node

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lunfardo314/notary/global"
	"github.com/lunfardo314/notary/util"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DBTypeBadger = "badger"
	DBTypeMemory = "memory"
)

func init() {
	pflag.String("name", "notary", "name of the node")
	pflag.String("logger.level", "info", "log level")
	pflag.String("logger.timelayout", "", "time format of the log")
	pflag.String("logger.output", "stdout", "comma separated list where to write log")
	pflag.StringSlice("notaries", nil, "notary identities served by the node")
	pflag.String("ledger.unknown_states", "reject", "one of: reject | accept")
	pflag.String("db.type", DBTypeBadger, "one of: badger | memory")
	pflag.String("db.dir", global.DefaultDBDir, "directory of the badger database")
	pflag.Int("api.server.port", global.DefaultAPIPort, "port of the API server")
}

// InitConfig reads 'notary.yaml' from the working directory, command line flags and NOTARY_* environment variables.
// Missing config file is not an error
func InitConfig() {
	pflag.Parse()
	err := viper.BindPFlags(pflag.CommandLine)
	util.AssertNoError(err)

	viper.SetEnvPrefix(global.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(global.ConfigFileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err = viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			util.AssertNoError(err)
		}
		_, _ = os.Stderr.WriteString("config file 'notary.yaml' not found, using flags and environment\n")
	}
}

func maxAttemptsFromConfig() int {
	if ret := viper.GetInt("db.max_attempts"); ret > 0 {
		return ret
	}
	return global.DefaultMaxAttempts
}

func apiPortFromConfig() int {
	if viper.IsSet("api.server.port") {
		return viper.GetInt("api.server.port")
	}
	return global.DefaultAPIPort
}

func dbTypeFromConfig() string {
	if ret := viper.GetString("db.type"); ret != "" {
		return ret
	}
	return DBTypeBadger
}

func dbDirFromConfig() string {
	if ret := viper.GetString("db.dir"); ret != "" {
		return ret
	}
	return global.DefaultDBDir
}

// notariesFromConfig accepts both yaml list and comma separated string
func notariesFromConfig() ([]string, error) {
	ret := make([]string, 0)
	for _, s := range viper.GetStringSlice("notaries") {
		for _, n := range strings.Split(s, ",") {
			if n = strings.TrimSpace(n); n == "" {
				continue
			}
			if util.Find(ret, n) >= 0 {
				return nil, fmt.Errorf("repeating notary '%s' in the configuration", n)
			}
			ret = append(ret, n)
		}
	}
	if len(ret) == 0 {
		return nil, errors.New("no notaries configured")
	}
	return ret, nil
}
