/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/superkkt/go-logging"

	"github.com/flowvisor/hypervisor/api"
	"github.com/flowvisor/hypervisor/config"
	"github.com/flowvisor/hypervisor/hypervisor"
)

const (
	programName     = "hypervisor"
	programVersion  = "0.1.0"
	defaultLogLevel = logging.INFO
)

var (
	logger            = logging.MustGetLogger("main")
	loggerLeveled     logging.LeveledBackend
	showVersion       = flag.Bool("version", false, "Show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "absolute path of the configuration file")
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var hv *hypervisor.Hypervisor
	conf, err := config.Init(*defaultConfigFile, func(updated *config.Config) {
		if loggerLeveled != nil {
			// Set log level for all modules
			loggerLeveled.SetLevel(getLogLevel(updated.LogLevel), "")
		}
		if hv != nil {
			hv.ApplySlices(ctx, sliceDefs(updated))
		}
	})
	if err != nil {
		logger.Fatalf("failed to init the configuration: %v", err)
	}
	if err := initLog(getLogLevel(conf.LogLevel)); err != nil {
		logger.Fatalf("failed to init log: %v", err)
	}

	hv = hypervisor.New(hypervisor.Settings{
		EchoInterval:   conf.EchoInterval,
		TopologyPeriod: conf.TopologyPeriod,
		LinkTTL:        conf.LinkTTL,
	})
	go hv.Run(ctx)
	hv.ApplySlices(ctx, sliceDefs(conf))

	if conf.RESTPort > 0 {
		initAPIServer(conf, hv)
	}
	initSignalHandler(hv, cancel)

	listen(ctx, int(conf.ListenPort), hv)
}

func sliceDefs(conf *config.Config) []hypervisor.SliceDef {
	defs := make([]hypervisor.SliceDef, 0, len(conf.Slices))
	for _, s := range conf.Slices {
		def := hypervisor.SliceDef{
			ID:         s.ID,
			Endpoint:   s.Endpoint(),
			MaxRatePPS: s.MaxRatePPS,
		}
		for _, v := range s.VirtualSwitches {
			swDef := hypervisor.VirtualSwitchDef{DatapathID: v.DatapathID}
			for _, p := range v.Ports {
				swDef.Ports = append(swDef.Ports, hypervisor.PortDef{
					Number:       p.VirtualPort,
					PhysicalDPID: p.PhysicalDPID,
					PhysicalPort: p.PhysicalPort,
				})
			}
			def.Switches = append(def.Switches, swDef)
		}
		defs = append(defs, def)
	}

	return defs
}

func initAPIServer(conf *config.Config, hv *hypervisor.Hypervisor) {
	go func() {
		c := api.Config{Status: hv}
		c.Port = conf.RESTPort

		srv := &api.Core{Config: c}
		if err := srv.Serve(); err != nil {
			logger.Fatalf("failed to run the API server: %v", err)
		}
	}()
}

func initSignalHandler(hv *hypervisor.Hypervisor, cancel context.CancelFunc) {
	go func() {
		c := make(chan os.Signal, 5)
		// All incoming signals will be transferred to the channel
		signal.Notify(c)

		// Infinte loop.
		for {
			s := <-c
			if s == syscall.SIGTERM || s == syscall.SIGINT {
				// Graceful shutdown
				logger.Warning("Shutting down...")
				cancel()
				// Timeout for cancelation
				time.Sleep(5 * time.Second)
				os.Exit(0)
			} else if s == syscall.SIGHUP {
				fmt.Println("* Switch status:")
				fmt.Println(spew.Sdump(hv.Switches()))
				fmt.Printf("\n* Slice status:\n")
				fmt.Println(spew.Sdump(hv.Slices()))
			}
		}
	}()
}

func initLog(level logging.Level) error {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(`%{level}: %{shortpkg}.%{shortfunc}: %{message}`))

	loggerLeveled = logging.AddModuleLevel(formatted)
	// Set log level for all modules
	loggerLeveled.SetLevel(level, "")
	logging.SetBackend(loggerLeveled)

	return nil
}

func getLogLevel(level string) logging.Level {
	level = strings.ToUpper(level)
	ret, err := logging.LogLevel(level)
	if err != nil {
		logger.Infof("invalid log level=%v, defaulting to %v..", level, defaultLogLevel)
		return defaultLogLevel
	}

	return ret
}

func listen(ctx context.Context, port int, hv *hypervisor.Hypervisor) {
	type KeepAliver interface {
		SetKeepAlive(keepalive bool) error
		SetKeepAlivePeriod(d time.Duration) error
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		logger.Errorf("failed to listen on %v port: %v", port, err)
		return
	}
	defer listener.Close()

	// Connection dispatcher.
	f := func(c chan<- net.Conn) {
		for {
			conn, err := listener.Accept()
			if err != nil {
				logger.Errorf("failed to accept a new connection: %v", err)
				continue
			}
			logger.Infof("new switch is connected from %v", conn.RemoteAddr())

			// Pass the new connection into the backlog queue.
			c <- conn
		}
	}
	backlog := make(chan net.Conn, 32)
	go f(backlog)

	// Infinite loop
	for {
		select {
		case <-ctx.Done():
			logger.Debug("terminating the main listener loop...")
			return
		case conn := <-backlog:
			logger.Debug("fetching a new connection from the backlog..")
			if v, ok := conn.(KeepAliver); ok {
				logger.Debug("trying to enable socket keepalive..")
				if err := v.SetKeepAlive(true); err == nil {
					logger.Debug("setting socket keepalive period...")
					// Makes a broken connection will be disconnected within 45 seconds.
					// http://felixge.de/2014/08/26/tcp-keepalive-with-golang.html
					v.SetKeepAlivePeriod(time.Duration(5) * time.Second)
				} else {
					logger.Errorf("failed to enable socket keepalive: %v", err)
				}
			}
			hv.AddConnection(ctx, conn)
		}
	}
}
