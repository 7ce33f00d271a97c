package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ugoe-astro/cgem_interface/astro"
	"github.com/ugoe-astro/cgem_interface/cgem"
	"github.com/ugoe-astro/cgem_interface/internal/serialport"
	"github.com/ugoe-astro/cgem_interface/power"
)

var (
	configPath = flag.String("config", "mountd.yaml", "path to configuration file")
	simulate   = flag.Bool("simulate", false, "use the built-in mount simulator instead of the serial port")
)

func main() {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	srv := NewServer()

	var transport cgem.Transport
	if *simulate {
		sim, conn := cgem.NewSimulator()
		go func() {
			if err := sim.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("simulator: %v", err)
			}
		}()
		transport = cgem.NewConnTransport(conn)
		log.Print("using simulated mount")
	} else {
		if cfg.Serial.Port == "" {
			log.Fatalf("config %s: serial.port is required without -simulate", *configPath)
		}
		port, err := serialport.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			log.Fatalf("opening mount port: %v", err)
		}
		defer port.Close()
		transport = port
		log.Printf("opened %q", cfg.Serial.Port)
	}

	observer := astro.NewObserver(cfg.Site.LatitudeDeg, cfg.Site.LongitudeDeg, cfg.Site.HeightM)
	m := cgem.New(transport, observer.Now, srv.mountStatusCallback)
	srv.m = m

	initSeq := append(append([]cgem.NamedFrame{}, cfg.InitCommands...), cfg.AlignCommands...)
	if err := m.Initialize(ctx, initSeq); err != nil {
		// A dead link at startup cannot self-heal; bail out.
		log.Fatalf("initializing mount: %v", err)
	}

	if cfg.Power != nil {
		p, err := power.Connect(ctx, cfg.Power.Port, cfg.Power.Baud, srv.powerStatusCallback)
		if err != nil {
			log.Fatalf("connecting power board: %v", err)
		}
		srv.p = p
	}

	go m.Watch(ctx, cfg.PollInterval())

	if err := srv.ListenCtl(ctx, cfg.CtlAddr); err != nil {
		log.Fatalf("control listener: %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", srv.StatusHandler)
	r.HandleFunc("/api/ws", srv.StatusSocketHandler)
	httpSrv := &http.Server{
		Handler:      r,
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("listening on http://%s", cfg.HTTPAddr)
	log.Fatal(httpSrv.ListenAndServe())
}
