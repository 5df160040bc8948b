// Package checkpointer implements saving and loading of serializable
// objects such as network parameters
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Serializable is an object whose state can be saved and restored
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Save serializes an object and writes it to path, creating any
// missing parent directories
func Save(path string, obj Serializable) error {
	encoded, err := obj.GobEncode()
	if err != nil {
		return fmt.Errorf("save: could not encode object: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("save: could not create directory: %v", err)
	}

	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("save: could not write %v: %v", path, err)
	}
	return nil
}

// Load reads path and restores the object's state from it. The object
// must already be constructed compatibly with the saved state.
func Load(path string, obj Serializable) error {
	encoded, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load: could not read %v: %v", path, err)
	}

	if err := obj.GobDecode(encoded); err != nil {
		return fmt.Errorf("load: could not decode %v: %v", path, err)
	}
	return nil
}
