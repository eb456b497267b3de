package api

import (
	"flag"
	"net"
	"strings"

	"github.com/grafana/globalconf"
	log "github.com/sirupsen/logrus"
)

var (
	Addr     string
	UseSSL   bool
	certFile string
	keyFile  string
	useGzip  bool

	corsOriginsStr string
	corsOrigins    []string
)

func ConfigSetup() {
	apiCfg := flag.NewFlagSet("http", flag.ExitOnError)
	apiCfg.StringVar(&Addr, "listen", ":6070", "http listener address.")
	apiCfg.BoolVar(&UseSSL, "ssl", false, "use HTTPS")
	apiCfg.StringVar(&certFile, "cert-file", "", "SSL certificate file")
	apiCfg.StringVar(&keyFile, "key-file", "", "SSL key file")
	apiCfg.BoolVar(&useGzip, "gzip", true, "use GZIP compression of all responses")
	apiCfg.StringVar(&corsOriginsStr, "cors-allowed-origins", "", "comma separated list of origins allowed to make cross-origin requests, * for all. empty disables CORS")
	globalconf.Register("http", apiCfg, flag.ExitOnError)
}

func ConfigProcess() {
	//validate the addr
	_, err := net.ResolveTCPAddr("tcp", Addr)
	if err != nil {
		log.Fatal("API listen address is not a valid TCP address.")
	}
	corsOrigins = nil
	for _, o := range strings.Split(corsOriginsStr, ",") {
		if o = strings.TrimSpace(o); o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
}
