package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"simhook/core"
	"simhook/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const usage = `usage: simhook [flags] <command> [args]

commands:
  regions                      list the target's memory map
  read <addr> [size]           hexdump target memory
  dump <dir>                   save the target's memory to dir
  classname <addr>             class name of the object at addr
  global <name>                resolve a global of the symbol table
  find <base> <u32|u64> <hex>  pointer paths from base to a value
  patch <addr> <hex bytes>     write bytes, raising page protection
  tile <x> <y> <z>             tile type and materials at a map position
  retarget <x> <y> <z> <mat>   replace a tile with the same shape in mat
`

var log = logger.NewLogger(coloransi.Color(coloransi.ColorLimeGreen, coloransi.ColorIndigo, "simhook"))

func main() {
	configFlag := flag.String("config", "", "YAML config file")
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to")
	dumpFlag := flag.String("dump", "", "Dump directory to load instead of a live process")
	selfFlag := flag.Bool("self", false, "Attach to this process")
	symbolsFlag := flag.String("symbols", "", "Symbol table for the target")
	exeFlag := flag.String("exe", "", "Executable to hash instead of the target's own image")
	intervalFlag := flag.Duration("interval", core.DefaultInterval, "Polling period of the suspend driver")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Printf("Error: unknown command %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	var cfg core.Config
	if *configFlag != "" {
		var err error
		if cfg, err = core.LoadConfig(*configFlag); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = core.Config{
			PID:        *pidFlag,
			Name:       *nameFlag,
			DumpDir:    *dumpFlag,
			Symbols:    *symbolsFlag,
			Executable: *exeFlag,
			Interval:   *intervalFlag,
		}
		if *selfFlag {
			cfg.Host = core.HostSelf
		}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Error: %v\n", err)
			flag.Usage()
			os.Exit(2)
		}
	}

	proc, err := core.Attach(cfg)
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}
	defer proc.Close()

	if err := run(cfg, proc, cmd, flag.Args()[1:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		proc.Close()
		os.Exit(1)
	}
}

// run executes cmd. Commands on raw memory skip identification; the rest
// run while holding the suspend token, serviced by a polling driver.
func run(cfg core.Config, proc process.Process, cmd command, args []string) error {
	if len(args) < cmd.args {
		return fmt.Errorf("%s needs %d arguments", cmd.name, cmd.args)
	}
	if cmd.raw {
		return cmd.run(&env{proc: proc}, args)
	}

	c, err := core.New(cfg, proc)
	if err != nil {
		return err
	}
	coord, err := c.Suspender()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := c.RunDriver(ctx, cfg.Interval, nil); err != nil && ctx.Err() == nil {
			log.Warn("driver stopped: ", err)
		}
	}()

	g := coord.NewClient("cli").Lock()
	defer g.Unlock()
	log.Debugln("running", cmd.name, strings.Join(args, " "))
	return cmd.run(&env{proc: proc, core: c}, args)
}
