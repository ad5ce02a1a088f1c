package stgen_test

import (
	"fmt"
	"log"
	"os"

	"github.com/kolkov/stgen/stgen"
)

// Example demonstrates a minimal producer/consumer trace: thread 1 stores a
// value, thread 2 loads it, and the run produces one trace per thread.
func Example() {
	dir, err := os.MkdirTemp("", "stgen-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	gen, err := stgen.New(stgen.Options{OutputDir: dir})
	if err != nil {
		log.Fatal(err)
	}

	gen.Swap(1)
	gen.Store(0x1000, 8)
	gen.IOP()

	gen.Swap(2)
	gen.Load(0x1000, 8)

	if err := gen.Close(); err != nil {
		log.Fatal(err)
	}

	for _, name := range []string{"sigil.events.out-1.gz", "sigil.events.out-2.gz", "sigil.pthread.out", "sigil.stats.out"} {
		if _, err := os.Stat(dir + "/" + name); err == nil {
			fmt.Println(name)
		}
	}
	// Output:
	// sigil.events.out-1.gz
	// sigil.events.out-2.gz
	// sigil.pthread.out
	// sigil.stats.out
}
