package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
)

// ListenCtl serves a small hamlib-flavored line protocol for scripting
// the mount:
//
//	P <ra_hours> <dec_deg>  start a slew
//	p                       report RA/Dec
//	m                       report raw motor angles
//	T <rate1> <rate2>       set tracking rates (arcsec/sec)
//	t                       stop tracking
//	M <axis> <level>        hand-paddle move, level -9..9
//	S                       stop all motion / abort slew
//
// Every command is answered with an RPRT code, 0 on success.
func (s *Server) ListenCtl(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing control socket")
		ln.Close()
	}()
	go func() {
		for ctx.Err() == nil {
			conn, err := ln.Accept()
			if err != nil {
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.handleCtl(conn)
		}
	}()
	return nil
}

func (s *Server) handleCtl(conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		args := strings.Fields(line)
		cmd, args := args[0], args[1:]
		log.Printf("%v command: %q args: %#v", conn.RemoteAddr(), cmd, args)
		rprt := -1
		switch cmd {
		case "P", "set_pos":
			if len(args) != 2 {
				rprt = -22
				break
			}
			ra, err1 := strconv.ParseFloat(args[0], 64)
			dec, err2 := strconv.ParseFloat(args[1], 64)
			if err1 != nil || err2 != nil {
				rprt = -22
				break
			}
			s.mu.Lock()
			s.startSlew(ra, dec)
			s.mu.Unlock()
			rprt = 0
		case "p", "get_pos":
			ra, dec := s.m.RADec()
			fmt.Fprintf(conn, "%.6f\n%.6f\n", ra, dec)
			rprt = 0
		case "m", "get_motors":
			status := s.m.Status()
			a1, a2 := status.MotorAngles()
			fmt.Fprintf(conn, "%.6f\n%.6f\n", a1, a2)
			rprt = 0
		case "T", "track":
			if len(args) != 2 {
				rprt = -22
				break
			}
			r1, err1 := strconv.ParseFloat(args[0], 64)
			r2, err2 := strconv.ParseFloat(args[1], 64)
			if err1 != nil || err2 != nil {
				rprt = -22
				break
			}
			s.mu.Lock()
			err := s.m.SetTracking(r1, r2)
			s.mu.Unlock()
			if err != nil {
				log.Printf("tracking: %v", err)
				rprt = -9
				break
			}
			rprt = 0
		case "t", "stop_tracking":
			s.mu.Lock()
			err := s.m.StopTracking()
			s.mu.Unlock()
			if err != nil {
				rprt = -9
				break
			}
			rprt = 0
		case "M", "move":
			if len(args) != 2 {
				rprt = -22
				break
			}
			axis, err1 := strconv.Atoi(args[0])
			level, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil || (axis != 1 && axis != 2) {
				rprt = -22
				break
			}
			s.mu.Lock()
			err := s.m.Move(axis-1, level)
			s.mu.Unlock()
			if err != nil {
				rprt = -9
				break
			}
			rprt = 0
		case "S", "stop":
			s.mu.Lock()
			err := s.m.Stop()
			s.mu.Unlock()
			if err != nil {
				rprt = -9
				break
			}
			rprt = 0
		}
		fmt.Fprintf(conn, "RPRT %d\n", rprt)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}
