package config

import (
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/subosito/gotenv"
)

type DotenvConfig struct {
	DotenvPath string
}

func NewDotenvConfig(path string) *DotenvConfig {
	return &DotenvConfig{DotenvPath: path}
}

func (c *DotenvConfig) LoadFromPath(path string) error {
	c.DotenvPath = path
	return gotenv.Load(c.DotenvPath)
}

func (c *DotenvConfig) Load() error {
	return gotenv.Load(c.DotenvPath)
}

func (c *DotenvConfig) GetKey(key string) string {
	return os.Getenv(key)
}

func (c *DotenvConfig) MustGetKey(key string) string {
	val := c.GetKey(key)
	if val == "" {
		log.Fatalf("No such required config key: '%s'", key)
	}

	return val
}

func (c *DotenvConfig) GetKeyWithDefault(key, defaultValue string) string {
	if val := c.GetKey(key); val != "" {
		return val
	}

	return defaultValue
}

func (c *DotenvConfig) GetIntKey(key string) int {
	intVal, err := strconv.Atoi(c.GetKey(key))
	if err != nil {
		return 0
	}

	return intVal
}

func (c *DotenvConfig) GetIntKeyWithDefault(key string, defaultValue int) int {
	intVal, err := strconv.Atoi(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return intVal
}

func (c *DotenvConfig) GetInt64KeyWithDefault(key string, defaultValue int64) int64 {
	intVal, err := strconv.ParseInt(c.GetKey(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func (c *DotenvConfig) GetBoolKeyWithDefault(key string, defaultValue bool) bool {
	boolVal, err := strconv.ParseBool(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return boolVal
}
