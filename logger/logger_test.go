package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFormat(t *testing.T) {
	f := &TextFormatter{ModuleName: "cp", TimestampFormat: time.RFC3339}
	tests := []struct {
		fields logrus.Fields
		msg    string
		exp    string
	}{
		{nil, "started", "2020-01-01T00:00:00Z [INFO] [cp] started\n"},
		{
			logrus.Fields{"zeta": 1, "counter": "cpu", "ocid": 101, "alpha": "x y"},
			"skipping counter",
			"2020-01-01T00:00:00Z [INFO] [cp] skipping counter ocid=101 counter=cpu alpha=\"x y\" zeta=1\n",
		},
		{
			logrus.Fields{"error": errors.New("looped"), "took": 1500 * time.Millisecond, "object": ""},
			"",
			"2020-01-01T00:00:00Z [INFO] [cp]  object=\"\" error=looped took=1.5s\n",
		},
	}
	for _, tt := range tests {
		entry := &logrus.Entry{
			Time:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Level:   logrus.InfoLevel,
			Message: tt.msg,
			Data:    tt.fields,
		}
		got, err := f.Format(entry)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.exp {
			t.Errorf("expected %q, got %q", tt.exp, string(got))
		}
	}
}

func TestSetup(t *testing.T) {
	if err := Setup("nope", "cp"); err == nil {
		t.Fatal("expected an invalid level to be rejected")
	}
	if err := Setup("debug", "cp"); err != nil {
		t.Fatal(err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logrus.GetLevel())
	}
	logrus.SetLevel(logrus.InfoLevel)
}
