package config

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/apex/log"
)

// MapConfig is a Configer backed by an in-memory map. Tests use it to stand
// up storage definitions without touching the environment.
type MapConfig struct {
	values sync.Map
}

func NewMapConfig(entries map[string]string) *MapConfig {
	c := &MapConfig{}
	for key, entry := range entries {
		c.values.Store(key, entry)
	}

	return c
}

// Set adds or replaces a key. Safe to call after construction.
func (c *MapConfig) Set(key, value string) {
	c.values.Store(key, value)
}

func (c *MapConfig) LoadFromPath(_ string) error {
	return fmt.Errorf("LoadFromPath not supported for MapConfig")
}

func (c *MapConfig) Load() error {
	return nil
}

func (c *MapConfig) GetKey(key string) string {
	v, ok := c.values.Load(key)
	if !ok || v == nil {
		return ""
	}

	return v.(string)
}

func (c *MapConfig) MustGetKey(key string) string {
	val := c.GetKey(key)
	if val == "" {
		log.Fatalf("No such required config key: '%s'", key)
	}

	return val
}

func (c *MapConfig) GetKeyWithDefault(key, defaultValue string) string {
	if val := c.GetKey(key); val != "" {
		return val
	}

	return defaultValue
}

func (c *MapConfig) GetIntKey(key string) int {
	intVal, err := strconv.Atoi(c.GetKey(key))
	if err != nil {
		return 0
	}

	return intVal
}

func (c *MapConfig) GetIntKeyWithDefault(key string, defaultValue int) int {
	intVal, err := strconv.Atoi(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return intVal
}

func (c *MapConfig) GetInt64KeyWithDefault(key string, defaultValue int64) int64 {
	intVal, err := strconv.ParseInt(c.GetKey(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func (c *MapConfig) GetBoolKeyWithDefault(key string, defaultValue bool) bool {
	boolVal, err := strconv.ParseBool(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return boolVal
}
