package cfg

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadConfig reads a config file and unmarshals it into ptr.
func LoadConfig(configDir, configFile, configSuffix string, ptr interface{}) error {
	viper.SetConfigName(configFile)
	viper.AddConfigPath(configDir)
	viper.SetConfigType(configSuffix)
	err := viper.ReadInConfig()
	if err != nil {
		return errors.WithMessagef(err, "read config file %s in %s (%s)", configFile, configDir, configSuffix)
	}
	err = viper.Unmarshal(ptr)
	if err != nil {
		return errors.WithMessagef(err, "unmarshal config file %s in %s (%s)", configFile, configDir, configSuffix)
	}
	return nil
}
