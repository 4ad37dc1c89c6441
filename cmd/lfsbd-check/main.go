package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	log "github.com/fclairamb/go-log"
	gologrus "github.com/fclairamb/go-log/logrus"
	"github.com/shiv50084/littlefs-fuse/pkg/lfsbd"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/timtadh/getopt"
)

const usage = `lfsbd-check [options] <image>

Programs a block, syncs, closes and reopens the image, then checks that
the block reads back and that reading past the last block is rejected.

Options
  -h, --help                  print this message
  -b, --block-size=<bytes>    block size, 0 to detect (default 0)
  -c, --block-count=<blocks>  block count, 0 to detect (default 0)
  --block=<n>                 block to program (default 0)
  --create=<bytes>            create the image with this size first
  -v, --verbose               log every block device operation
`

type check struct {
	fs     afero.Fs
	path   string
	cfg    lfsbd.Config
	block  uint32
	logger log.Logger
}

func (c *check) run() error {
	opts := []lfsbd.Option{lfsbd.WithFs(c.fs), lfsbd.WithLogger(c.logger)}
	if err := lfsbd.Create(&c.cfg, c.path, opts...); err != nil {
		return err
	}
	fmt.Printf("Geometry: %d blocks of %d bytes\n", c.cfg.BlockCount, c.cfg.BlockSize)

	size := c.cfg.BlockSize
	if size > 64 {
		size = 64
	}
	pattern := bytes.Repeat([]byte{0xab}, int(size))
	if err := c.cfg.Device.ProgramBlock(c.block, 0, pattern); err != nil {
		lfsbd.Destroy(&c.cfg)
		return err
	}
	if err := c.cfg.Device.Sync(); err != nil {
		lfsbd.Destroy(&c.cfg)
		return err
	}
	lfsbd.Destroy(&c.cfg)

	if err := lfsbd.Create(&c.cfg, c.path, opts...); err != nil {
		return err
	}
	defer lfsbd.Destroy(&c.cfg)

	got := make([]byte, len(pattern))
	if err := c.cfg.Device.ReadBlock(c.block, 0, got); err != nil {
		return err
	}
	if !bytes.Equal(pattern, got) {
		return fmt.Errorf("block %d read back %x, expected %x", c.block, got, pattern)
	}
	fmt.Printf("Block %d: %d bytes survived close and reopen\n", c.block, len(got))

	err := c.cfg.Device.ReadBlock(c.cfg.BlockCount, 0, got)
	if !errors.Is(err, lfsbd.KindInvalidAddress) {
		return fmt.Errorf("reading block %d: expected an invalid address error, got %v", c.cfg.BlockCount, err)
	}
	fmt.Printf("Block %d: rejected (%v)\n", c.cfg.BlockCount, err)
	return nil
}

// createImage makes a zero-filled image of sizeBytes. It never
// overwrites an existing file.
func createImage(fs afero.Fs, path string, sizeBytes int64) error {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := f.Truncate(sizeBytes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fail(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

func parseUint32(opt, arg string) uint32 {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		fail(1, "%v expects a number, got '%v'", opt, arg)
	}
	return uint32(n)
}

func main() {
	args, optargs, err := getopt.GetOpt(
		os.Args[1:],
		"hb:c:v",
		[]string{"help", "block-size=", "block-count=", "block=", "create=", "verbose"},
	)
	if err != nil {
		fail(1, "%v\n%s", err, usage)
	}

	base := logrus.New()
	c := &check{fs: afero.NewOsFs()}
	var createSize int64
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h", "--help":
			fmt.Print(usage)
			os.Exit(0)
		case "-b", "--block-size":
			c.cfg.BlockSize = parseUint32(oa.Opt(), oa.Arg())
		case "-c", "--block-count":
			c.cfg.BlockCount = parseUint32(oa.Opt(), oa.Arg())
		case "--block":
			c.block = parseUint32(oa.Opt(), oa.Arg())
		case "--create":
			createSize, err = strconv.ParseInt(oa.Arg(), 10, 64)
			if err != nil || createSize <= 0 {
				fail(1, "%v expects a positive size, got '%v'", oa.Opt(), oa.Arg())
			}
		case "-v", "--verbose":
			base.SetLevel(logrus.DebugLevel)
		default:
			fail(1, "Unknown flag '%v'\n%s", oa.Opt(), usage)
		}
	}
	if len(args) != 1 {
		fail(1, "Must supply exactly one image\n%s", usage)
	}
	c.path = args[0]
	c.logger = gologrus.NewWrap(base)

	if createSize > 0 {
		if err := createImage(c.fs, c.path, createSize); err != nil {
			fail(2, "create %v: %v", c.path, err)
		}
	}
	if err := c.run(); err != nil {
		fail(3, "FAIL: %v", err)
	}
	fmt.Println("OK")
}
