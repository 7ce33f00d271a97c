// Package modbus wraps a reconnecting Modbus RTU client around a poll
// loop, for the observatory's relay peripherals.
package modbus

import (
	"context"
	"log"
	"time"

	"github.com/goburrow/modbus"
)

type Client struct {
	// Port and BaudRate select the local RS-485 line.
	Port     string
	BaudRate int
	SlaveId  byte

	// Poll is called in a loop while the connection is up; returning
	// an error drops the connection and retries.
	Poll func() error

	handler *modbus.RTUClientHandler
	modbus.Client
}

func (c *Client) Connect(ctx context.Context) error {
	handler := modbus.NewRTUClientHandler(c.Port)
	handler.BaudRate = c.BaudRate
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.Timeout = 1 * time.Second
	handler.SlaveId = c.SlaveId
	c.handler = handler
	c.Client = modbus.NewClient(handler)
	go c.reconnectLoop(ctx)
	return nil
}

func (c *Client) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}

		if err := c.handler.Connect(); err != nil {
			log.Printf("opening %q: %v", c.Port, err)
			continue
		}
		if err := c.watch(ctx); err != nil {
			log.Printf("watching %q: %v", c.Port, err)
		}
	}
}

func (c *Client) watch(ctx context.Context) error {
	defer c.handler.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.Poll(); err != nil {
			return err
		}
	}
}

func (c *Client) WriteCoil(coil int, value bool) error {
	var v uint16
	if value {
		v = 0xFF00
	}
	_, err := c.WriteSingleCoil(uint16(coil), v)
	return err
}

func BytesToBits(bs []byte) []bool {
	var out []bool
	for _, b := range bs {
		for i := 0; i < 8; i++ {
			out = append(out, (b>>uint(i)&1) == 1)
		}
	}
	return out
}
