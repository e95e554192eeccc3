package modules

import (
	"context"

	"github.com/szgerii/Safari-sub001/models"
)

// Module is the interface that describes a simulation system running on the
// frames of a level.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module for the given level.
	Init(*models.Level)

	// Handles a frame. It is called from the frame goroutine of the level,
	// which makes the level spatial index safe to use.
	//
	// Returned errors are logged and counted. They do not stop the level.
	HandleFrame(context.Context, models.Frame) error

	// Releases the module resources when the level is unloaded.
	Close()
}
