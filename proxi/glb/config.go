package glb

import (
	"os"

	"github.com/spf13/viper"
)

// ReadInConfig reads the config profile given by the 'config' flag, or '.proxi.yaml' in the working directory.
// Config profile is optional, all keys can be set with flags
func ReadInConfig() {
	if profile := viper.GetString("config"); profile != "" {
		viper.SetConfigFile(profile + ".yaml")
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".proxi")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		Verbosef("using config profile: %s", viper.ConfigFileUsed())
	} else if viper.GetString("config") != "" {
		AssertNoError(err)
	}
}

func FileMustExist(dir string) {
	_, err := os.Stat(dir)
	AssertNoError(err)
}

// Notary returns notary identity commands are addressed to
func Notary() string {
	ret := viper.GetString("notary")
	Assertf(ret != "", "notary not specified")
	return ret
}
