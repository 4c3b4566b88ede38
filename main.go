/*
 * IST-66 - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	reader "github.com/rcornwell/ist66/command/reader"
	config "github.com/rcornwell/ist66/config/configparser"
	core "github.com/rcornwell/ist66/emu/core"
	"github.com/rcornwell/ist66/emu/devlpt"
	"github.com/rcornwell/ist66/emu/devpch"
	"github.com/rcornwell/ist66/emu/devppt"
	"github.com/rcornwell/ist66/emu/devtty"
	master "github.com/rcornwell/ist66/emu/master"
	"github.com/rcornwell/ist66/emu/timer"
	"github.com/rcornwell/ist66/telnet"
	logger "github.com/rcornwell/ist66/util/logger"

	_ "github.com/rcornwell/ist66/config/debugconfig"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMemWords := getopt.StringLong("memory", 'm', "1048576", "Memory size in words")
	optPPT := getopt.StringLong("ppt", 0, "", "Paper tape reader image")
	optPCH := getopt.StringLong("pch", 0, "", "Paper tape punch image")
	optLPT := getopt.StringLong("lpt", 0, "", "Line printer output file")
	optTTYPort := getopt.StringLong("tty-port", 't', "0", "TELNET port for the console TTY (0 to disable)")
	optIOCPU := getopt.BoolLong("iocpu", 0, "Attach the companion IOCPU")
	optDebug := getopt.BoolLong("debug", 'd', "Echo log output to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	memWords, err := strconv.ParseUint(*optMemWords, 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid --memory value: "+*optMemWords)
		os.Exit(1)
	}
	ttyPort, err := strconv.Atoi(*optTTYPort)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid --tty-port value: "+*optTTYPort)
		os.Exit(1)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("IST-66 started")

	if *optConfig != "" {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}

	masterChannel := make(chan master.Packet)
	sim := core.New(uint32(memWords), masterChannel)

	if *optIOCPU {
		sim.AttachIOCPU(1 << 16)
	}

	if *optPPT != "" {
		ppt, err := devppt.New(*optPPT, func() { sim.Intr.Assert(2) })
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		sim.Devices.Add(devppt.DevNum, ppt)
	}
	if *optPCH != "" {
		pch, err := devpch.New(*optPCH, func() { sim.Intr.Assert(2) })
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		sim.Devices.Add(devpch.DevNum, pch)
	}
	if *optLPT != "" {
		lpt, err := devlpt.New(*optLPT, func() { sim.Intr.Assert(2) })
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		sim.Devices.Add(devlpt.DevNum, lpt)
	}

	const ttyDevNum uint16 = 0o010
	var ttyListener *telnet.Listener
	if ttyPort != 0 {
		tty := devtty.New(func() { sim.Intr.Assert(3) })
		sim.Devices.Add(ttyDevNum, tty)
		var err error
		ttyListener, err = telnet.Serve(ttyPort, ttyDevNum, masterChannel)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}

	clock := timer.NewTimer(masterChannel)
	clock.Start()

	go sim.Start()

	consoleDone := make(chan struct{})
	go func() {
		reader.ConsoleReader(sim)
		close(consoleDone)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-consoleDone:
	}

	Logger.Info("shutting down CPU")
	clock.Shutdown()
	sim.Stop()
	if ttyListener != nil {
		ttyListener.Stop()
	}
	Logger.Info("shutdown complete")
}
