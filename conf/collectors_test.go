package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "collectors.conf")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadCollectors(t *testing.T) {
	Convey("When reading a collectors file", t, func() {
		file := writeConf(t, `[ping]
dispatch = local
pause = 100ms
burst = 10

[snmp]
dispatch = kafka
`)
		collectors, err := ReadCollectors(file)
		So(err, ShouldBeNil)
		So(collectors, ShouldHaveLength, 2)

		Convey("settings are read per section", func() {
			ping := collectors.Get("ping")
			So(ping.Dispatch, ShouldEqual, DispatchLocal)
			So(ping.Pause, ShouldEqual, 100*time.Millisecond)
			So(ping.Burst, ShouldEqual, 10)
			So(collectors.Get("snmp").Dispatch, ShouldEqual, DispatchKafka)
			So(collectors.Get("snmp").Burst, ShouldEqual, 1)
		})
		Convey("unknown collectors get the defaults", func() {
			calc := collectors.Get("calc")
			So(calc.Name, ShouldEqual, "calc")
			So(calc.Dispatch, ShouldEqual, DispatchLocal)
			So(calc.Pause, ShouldEqual, 0)
		})
	})
	Convey("When reading invalid settings", t, func() {
		for _, content := range []string{
			"[a]\ndispatch = carrier-pigeon\n",
			"[a]\npause = soon\n",
			"[a]\nburst = 0\n",
		} {
			_, err := ReadCollectors(writeConf(t, content))
			So(err, ShouldNotBeNil)
		}
	})
}
