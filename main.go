package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	ftpserver "github.com/fclairamb/ftpserverlib"
	log "github.com/fclairamb/go-log"
	gologrus "github.com/fclairamb/go-log/logrus"
	"github.com/shiv50084/littlefs-fuse/pkg/lfsbd"
	"github.com/sirupsen/logrus"
	"github.com/timtadh/getopt"
)

var ErrorCodes = map[string]int{
	"usage": 0,
	"opts":  1,
	"open":  2,
	"serve": 3,
}

var UsageMessage = `littlefs-fuse [options] <image>

Opens a disk image or raw device as a littlefs block device and exports
its blocks, one file per block, over FTP and optionally WebDAV.

Options
  -h, --help                  print this message
  -b, --block-size=<bytes>    block size, 0 to detect (default 0)
  -c, --block-count=<blocks>  block count, 0 to detect (default 0)
  --ftp=<addr>                FTP listen address (default 0.0.0.0:7021)
  --http=<addr>               serve WebDAV at /mount and metrics at /metrics
  -u, --user=<name>           FTP user name, any user if empty
  -p, --pass=<password>       FTP password
  -v, --verbose               log every block device operation
`

func Usage(code int) {
	fmt.Fprint(os.Stderr, UsageMessage)
	os.Exit(code)
}

func parseUint32(opt, arg string) uint32 {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v expects a number, got '%v'\n", opt, arg)
		Usage(ErrorCodes["opts"])
	}
	return uint32(n)
}

func main() {
	args, optargs, err := getopt.GetOpt(
		os.Args[1:],
		"hb:c:u:p:v",
		[]string{
			"help", "block-size=", "block-count=", "ftp=", "http=",
			"user=", "pass=", "verbose",
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		Usage(ErrorCodes["opts"])
	}

	cfg := lfsbd.Config{}
	driver := &FTPServer{
		Settings: &ftpserver.Settings{
			ListenAddr: "0.0.0.0:7021",
		},
	}
	httpAddr := ""
	verbose := false
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h", "--help":
			Usage(ErrorCodes["usage"])
		case "-b", "--block-size":
			cfg.BlockSize = parseUint32(oa.Opt(), oa.Arg())
		case "-c", "--block-count":
			cfg.BlockCount = parseUint32(oa.Opt(), oa.Arg())
		case "--ftp":
			driver.Settings.ListenAddr = oa.Arg()
		case "--http":
			httpAddr = oa.Arg()
		case "-u", "--user":
			driver.User = oa.Arg()
		case "-p", "--pass":
			driver.Pass = oa.Arg()
		case "-v", "--verbose":
			verbose = true
		default:
			fmt.Fprintf(os.Stderr, "Unknown flag '%v'\n", oa.Opt())
			Usage(ErrorCodes["opts"])
		}
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Must supply exactly one image, try --help")
		Usage(ErrorCodes["opts"])
	}

	base := logrus.New()
	if verbose {
		base.SetLevel(logrus.DebugLevel)
	}
	logger := gologrus.NewWrap(base)
	os.Exit(serve(args[0], &cfg, driver, httpAddr, logger))
}

// handleSignals calls stop on the first SIGINT or SIGTERM. The returned
// function unregisters the handler and waits for it to exit.
func handleSignals(stop func()) func() {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(exited)
		select {
		case <-sig:
			stop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
		<-exited
	}
}

// serve opens the image, exports it until SIGINT or SIGTERM and returns
// the process exit code.
func serve(path string, cfg *lfsbd.Config, driver *FTPServer, httpAddr string, logger log.Logger) int {
	if err := lfsbd.Create(cfg, path, lfsbd.WithLogger(logger)); err != nil {
		logger.Error("Cannot open block device", "path", path, "err", err)
		return ErrorCodes["open"]
	}
	defer lfsbd.Destroy(cfg)

	dev := lfsbd.NewMetricsBlockDevice(cfg.Device, filepath.Base(path))
	driver.FileSystem = lfsbd.AsAfero(dev, lfsbd.WithLogger(logger))
	driver.Logger = logger

	srv := ftpserver.NewFtpServer(driver)
	srv.Logger = logger

	var httpServer *http.Server
	if httpAddr != "" {
		ln, err := net.Listen("tcp", httpAddr)
		if err != nil {
			logger.Error("Cannot listen", "addr", httpAddr, "err", err)
			return ErrorCodes["serve"]
		}
		httpServer = newHTTPServer(driver.FileSystem, os.Stdout, logger)
		go func() {
			if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	release := handleSignals(func() { srv.Stop() })
	code := 0
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("FTP server stopped", "err", err)
		code = ErrorCodes["serve"]
	}
	release()
	if httpServer != nil {
		httpServer.Close()
	}

	if err := dev.Sync(); err != nil {
		logger.Error("Final sync failed", "err", err)
		code = ErrorCodes["serve"]
	}
	return code
}
