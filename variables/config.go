package variables

import (
	"flag"

	"github.com/grafana/globalconf"
	log "github.com/sirupsen/logrus"
)

var (
	// MaxDepth bounds the nesting of variable references
	MaxDepth = 20
)

func ConfigSetup() {
	fs := flag.NewFlagSet("variables", flag.ExitOnError)
	fs.IntVar(&MaxDepth, "max-depth", MaxDepth, "maximum nesting of variable references before a variable is reported as looped")
	globalconf.Register("variables", fs, flag.ExitOnError)
}

func ConfigProcess() {
	if MaxDepth < 1 {
		log.Fatalf("variables: max-depth must be at least 1, got %d", MaxDepth)
	}
}
