// Package power drives the observatory's Modbus relay board: mount
// drive power and the dew heater circuit.
package power

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ugoe-astro/cgem_interface/internal/modbus"
)

type Status struct {
	CommandMountEnabled     bool
	CommandDewHeaterEnabled bool

	MountPowered     bool
	DewHeaterPowered bool
	SupplyFault      bool
}

type StatusCallback func(status Status)

type Board struct {
	statusCallback StatusCallback
	mu             sync.Mutex
	client         *modbus.Client
	relays         int
	coils          []bool
	inputs         []bool
}

const (
	coilMount = iota
	coilDewHeater
)

func Connect(ctx context.Context, port string, baud int, statusCallback StatusCallback) (*Board, error) {
	b := &Board{
		client: &modbus.Client{
			Port:     port,
			BaudRate: baud,
			SlaveId:  1,
		},
		statusCallback: statusCallback,
	}
	b.client.Poll = b.pollOnce
	return b, b.client.Connect(ctx)
}

func (b *Board) pollOnce() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	results, err := b.client.ReadInputRegisters(0, 1)
	if err != nil {
		return err
	}
	relays := binary.BigEndian.Uint16(results)

	coils, err := b.client.ReadCoils(0, relays)
	if err != nil {
		return err
	}
	inputs, err := b.client.ReadDiscreteInputs(0, relays+1)
	if err != nil {
		return err
	}
	b.relays = int(relays)
	b.coils = modbus.BytesToBits(coils)
	b.inputs = modbus.BytesToBits(inputs)
	b.notifyStatus()
	return nil
}

func (b *Board) notifyStatus() {
	b.statusCallback(b.parseRegisters())
}

func (b *Board) parseRegisters() Status {
	return Status{
		CommandMountEnabled:     b.coils[coilMount],
		CommandDewHeaterEnabled: b.coils[coilDewHeater],

		SupplyFault:      b.inputs[0],
		MountPowered:     b.inputs[1],
		DewHeaterPowered: b.inputs[2],
	}
}

func (b *Board) SetMountEnabled(enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.relays <= coilMount {
		return fmt.Errorf("relay board not polled yet")
	}
	return b.client.WriteCoil(coilMount, enabled)
}

func (b *Board) SetDewHeaterEnabled(enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.relays <= coilDewHeater {
		return fmt.Errorf("relay board not polled yet")
	}
	return b.client.WriteCoil(coilDewHeater, enabled)
}
