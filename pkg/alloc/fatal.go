package alloc

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/eigerco/rawvec/pkg/log"
)

// exit is swapped out in tests that exercise the fatal paths in-process.
var exit = os.Exit

// HandleAllocError reports a failed allocation of l and terminates the
// process. Running out of memory is not recoverable for a container.
func HandleAllocError(l Layout) {
	log.Alloc.WithLevel(zerolog.FatalLevel).
		Uint64("size", uint64(l.Size)).
		Uint64("align", uint64(l.Align)).
		Stringer("layout", l).
		Msg("memory allocation failed")
	exit(1)
}

// CapacityOverflow reports a capacity whose byte size cannot be represented
// and terminates the process.
func CapacityOverflow(err error) {
	log.Alloc.WithLevel(zerolog.FatalLevel).Err(err).Msg("capacity overflow")
	exit(1)
}
