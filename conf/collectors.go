package conf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alyu/configparser"
)

// Dispatch selects where the collector of a counter runs.
type Dispatch uint8

const (
	DispatchLocal Dispatch = iota // in this process
	DispatchKafka                 // in a remote collector process, reached through kafka
)

func (d Dispatch) String() string {
	if d == DispatchKafka {
		return "kafka"
	}
	return "local"
}

func DispatchFromString(s string) (Dispatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return DispatchLocal, nil
	case "kafka":
		return DispatchKafka, nil
	}
	return DispatchLocal, fmt.Errorf("unknown dispatch %q", s)
}

// CollectorSettings configures one collector
type CollectorSettings struct {
	Name     string
	Dispatch Dispatch
	Pause    time.Duration // minimum pause between two calls, 0 for none
	Burst    int
}

var DefaultCollector = CollectorSettings{
	Name:     "default",
	Dispatch: DispatchLocal,
	Burst:    1,
}

// Collectors contains the settings per collector name
type Collectors map[string]CollectorSettings

// Get returns the settings of the named collector, the default ones if it has none.
func (c Collectors) Get(name string) CollectorSettings {
	if s, ok := c[name]; ok {
		return s
	}
	s := DefaultCollector
	s.Name = name
	return s
}

// ReadCollectors reads and parses a collectors.conf file like
//
//	[ping]
//	dispatch = local
//	pause = 100ms
//	burst = 10
func ReadCollectors(file string) (Collectors, error) {
	config, err := configparser.Read(file)
	if err != nil {
		return nil, err
	}
	sections, err := config.AllSections()
	if err != nil {
		return nil, err
	}

	collectors := make(Collectors)
	for _, sec := range sections {
		name := strings.Trim(strings.SplitN(sec.String(), "\n", 2)[0], " []")
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		s := DefaultCollector
		s.Name = name

		s.Dispatch, err = DispatchFromString(sec.ValueOf("dispatch"))
		if err != nil {
			return nil, fmt.Errorf("[%s]: %s", name, err)
		}
		if v := sec.ValueOf("pause"); v != "" {
			s.Pause, err = time.ParseDuration(v)
			if err != nil || s.Pause < 0 {
				return nil, fmt.Errorf("[%s]: failed to parse pause %q", name, v)
			}
		}
		if v := sec.ValueOf("burst"); v != "" {
			s.Burst, err = strconv.Atoi(v)
			if err != nil || s.Burst < 1 {
				return nil, fmt.Errorf("[%s]: burst must be a positive integer, got %q", name, v)
			}
		}
		collectors[name] = s
	}
	return collectors, nil
}
