package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/history"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/spf13/viper"
)

// readJSON decodes the json file at path into v. "-" reads stdin.
func readJSON(path string, v interface{}) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = ioutil.ReadAll(os.Stdin)
	} else {
		data, err = ioutil.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}
	return nil
}

// loadRecords fills a memory store from a records file, if one is configured.
func loadRecords(path string) (*history.MemoryStore, error) {
	store := history.NewMemoryStore()
	if path == "" {
		return store, nil
	}
	series := make(map[schema.OCID][]schema.Record)
	if err := readJSON(path, &series); err != nil {
		return nil, err
	}
	for id, records := range series {
		store.Add(id, records...)
	}
	return store, nil
}

// newEnv builds the function environment over the configured records and clock.
func newEnv() (*functions.Env, error) {
	store, err := loadRecords(viper.GetString("records"))
	if err != nil {
		return nil, err
	}
	accessor := history.NewAccessor(store)
	env := functions.NewEnv(accessor)
	if ms := viper.GetInt64("now"); ms > 0 {
		now := time.Unix(0, ms*int64(time.Millisecond))
		accessor.Now = func() time.Time { return now }
		env.Now = accessor.Now
	}
	return env, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
