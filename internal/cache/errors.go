package cache

import "fmt"

// Storage operations reported through StorageError.Op.
const (
	OpLoad            = "load"
	OpSave            = "save"
	OpLoadPreferences = "load_preferences"
	OpSavePreferences = "save_preferences"
)

// StorageError describes a durable-store failure the cache absorbed. The
// in-memory state is unaffected; only durability is lost.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
