// mount_logger subscribes to mountd's status websocket and records
// pointing and tracking telemetry in InfluxDB.
package main

import (
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

func main() {
	server := os.Getenv("INFLUX_SERVER")
	if server == "" {
		server = "http://localhost:9999"
	}
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	writeApi := client.WriteApi("ugoe-astro", "mount.raw")
	defer writeApi.Close()
	go func() {
		for err := range writeApi.Errors() {
			log.Printf("write error: %v", err)
		}
	}()
	for {
		if err := logData(writeApi); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

type status struct {
	Mount struct {
		Mot1Pos        float64
		Mot2Pos        float64
		RAPos          float64
		DecPos         float64
		CommandMot1Pos float64
		CommandMot2Pos float64
		SlewPhase      string
		SlewActive     bool
		TrackRate1     float64
		TrackRate2     float64
	}
	Power *struct {
		MountPowered     bool
		DewHeaterPowered bool
		SupplyFault      bool
	}
}

func logData(writeApi api.WriteApi) error {
	url := os.Getenv("MOUNTD_ADDRESS")
	if url == "" {
		url = "ws://localhost:8502/api/ws"
	}
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var s status
		if err := conn.ReadJSON(&s); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"mot1_pos":         s.Mount.Mot1Pos,
			"mot2_pos":         s.Mount.Mot2Pos,
			"ra_pos":           s.Mount.RAPos,
			"dec_pos":          s.Mount.DecPos,
			"command_mot1_pos": s.Mount.CommandMot1Pos,
			"command_mot2_pos": s.Mount.CommandMot2Pos,
			"slew_active":      s.Mount.SlewActive,
			"track_rate1":      s.Mount.TrackRate1,
			"track_rate2":      s.Mount.TrackRate2,
		}
		if s.Power != nil {
			fields["mount_powered"] = s.Power.MountPowered
			fields["dew_heater_powered"] = s.Power.DewHeaterPowered
			fields["supply_fault"] = s.Power.SupplyFault
		}
		p := influxdb2.NewPoint("mount.status",
			map[string]string{"slew_phase": s.Mount.SlewPhase},
			fields,
			time.Now(),
		)
		writeApi.WritePoint(p)
	}
}
