package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ugoe-astro/cgem_interface/cgem"
	"github.com/ugoe-astro/cgem_interface/power"
)

// Status is the combined snapshot pushed to clients.
type Status struct {
	Mount cgem.Status
	Power *power.Status `json:",omitempty"`
}

type Server struct {
	mu sync.Mutex
	m  *cgem.Mount
	p  *power.Board

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     Status
}

func NewServer() *Server {
	s := &Server{}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(status)
	if err != nil {
		log.Print(err)
		return
	}
	w.Write(data)
}

type Command struct {
	Command string  `json:"command"`
	RA      float64 `json:"ra"`
	Dec     float64 `json:"dec"`
	Rate1   float64 `json:"rate1"`
	Rate2   float64 `json:"rate2"`
	Axis    int     `json:"axis"`
	Level   int     `json:"level"`
	Enabled bool    `json:"enabled"`
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// Read and process incoming messages
	go func() {
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				cancel()
				conn.Close()
				break
			}
			if err := s.dispatch(msg); err != nil {
				log.Printf("ws command %q: %v", msg.Command, err)
			}
		}
	}()

	send := func(status Status) bool {
		data, err := json.Marshal(status)
		if err != nil {
			log.Print(err)
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Print(err)
			return false
		}
		return true
	}

	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	if !send(status) {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		s.statusMu.RLock()
		s.statusCond.Wait()
		status := s.status
		s.statusMu.RUnlock()
		if !send(status) {
			return
		}
	}
}

func (s *Server) dispatch(msg Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch msg.Command {
	case "goto":
		s.startSlew(msg.RA, msg.Dec)
	case "abort":
		s.m.AbortSlew()
	case "stop":
		return s.m.Stop()
	case "track":
		return s.m.SetTracking(msg.Rate1, msg.Rate2)
	case "stop_tracking":
		return s.m.StopTracking()
	case "move":
		return s.m.Move(msg.Axis, msg.Level)
	case "mount_power":
		if s.p != nil {
			return s.p.SetMountEnabled(msg.Enabled)
		}
	case "dew_heater":
		if s.p != nil {
			return s.p.SetDewHeaterEnabled(msg.Enabled)
		}
	}
	return nil
}

// startSlew runs the blocking two-phase slew off the caller's
// goroutine; progress is visible through status pushes.
func (s *Server) startSlew(ra, dec float64) {
	go func() {
		switch err := s.m.SlewTo(context.Background(), ra, dec); err {
		case nil:
			log.Printf("slew to RA %.4fh Dec %.4f converged", ra, dec)
		case cgem.ErrSlewAborted:
			log.Printf("slew to RA %.4fh Dec %.4f aborted", ra, dec)
		default:
			log.Printf("slew to RA %.4fh Dec %.4f failed: %v", ra, dec, err)
		}
	}()
}

func (s *Server) mountStatusCallback(status cgem.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Mount = status
	s.statusCond.Broadcast()
}

func (s *Server) powerStatusCallback(status power.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Power = &status
	s.statusCond.Broadcast()
}
