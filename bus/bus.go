// Package bus implements the shared bus of the AZPR system: an arbiter that
// grants one of four masters exclusive ownership per cycle, and an address
// decoder that routes the owner's transaction to one of eight slaves.
package bus

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	MASTER_CH = 4 // Number of bus masters.
	SLAVE_CH  = 8 // Number of bus slaves.

	SLAVE_INDEX_SHIFT = 27                           // Slave index location, bits 29:27.
	SLAVE_INDEX_MASK  = 0x7                          // Slave index width mask.
	SLAVE_OFFSET_MASK = (1 << SLAVE_INDEX_SHIFT) - 1 // Byte offset within a slave window.
	SLAVE_WINDOW      = 1 << SLAVE_INDEX_SHIFT       // Size of a slave window in bytes.
)

// State is the state of a master's bus interface.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_IDLE   = State(0) // idle
	STATE_REQ    = State(1) // req
	STATE_ACCESS = State(2) // access
	STATE_STALL  = State(3) // stall
)

// Policy is the arbitration policy used when several masters request.
type Policy int

//go:generate go tool stringer -linecomment -type=Policy
const (
	POLICY_FIXED       = Policy(0) // fixed
	POLICY_ROUND_ROBIN = Policy(1) // round-robin
)

// ParsePolicy returns the policy with the given name.
func ParsePolicy(name string) (policy Policy, err error) {
	for _, policy = range []Policy{POLICY_FIXED, POLICY_ROUND_ROBIN} {
		if policy.String() == name {
			return
		}
	}

	err = ErrPolicyInvalid
	return
}

// SlaveIndex decodes the slave index from address bits 29:27.
func SlaveIndex(address uint32) int {
	return int((address >> SLAVE_INDEX_SHIFT) & SLAVE_INDEX_MASK)
}

// Offset returns the byte offset of address within its slave window.
func Offset(address uint32) uint32 {
	return address & SLAVE_OFFSET_MASK
}

// Base returns the first byte address decoded to the slave.
func Base(slave int) uint32 {
	return uint32(slave&SLAVE_INDEX_MASK) << SLAVE_INDEX_SHIFT
}

// Transaction is a single word access issued by a master.
type Transaction struct {
	Master  int    // Requesting master.
	Address uint32 // Byte address.
	Write   bool   // Set for a write access.
	Data    uint32 // Write data.
	Slave   int    // Decoded target slave.
}

// Offset returns the byte offset of the transaction within the slave window.
func (txn Transaction) Offset() uint32 {
	return Offset(txn.Address)
}

// String returns a short description of the transaction.
func (txn Transaction) String() string {
	if txn.Write {
		return fmt.Sprintf("m%d wr s%d 0x%08x <- 0x%08x", txn.Master, txn.Slave, txn.Address, txn.Data)
	}
	return fmt.Sprintf("m%d rd s%d 0x%08x", txn.Master, txn.Slave, txn.Address)
}

// Slave is a memory mapped target on the bus.
type Slave interface {
	// Access performs the transaction. While ready is false the granted
	// master stalls and the same transaction is presented again on the
	// next cycle.
	Access(txn Transaction) (data uint32, ready bool)
}

// Port is the bus interface of a single master.
type Port struct {
	State       State       // Bus interface state.
	Transaction Transaction // Current or last transaction.
	Data        uint32      // Read data of the last completed transaction.
	Done        bool        // Completed transaction not yet collected.
	Waited      int         // Cycles spent in REQ or STALL for the current transaction.
}

// Bus is the arbiter and address decoder.
type Bus struct {
	Verbose bool               // Set to enable verbose logging.
	Log     logrus.FieldLogger // Logger for verbose output.
	Policy  Policy             // Arbitration policy.
	Cycles  int                // Cycles since reset.

	owner   int  // Last granted master.
	granted bool // Owner holds the bus.

	port  [MASTER_CH]Port
	slave [SLAVE_CH]Slave
}

// NewBus creates a bus with no slaves attached.
func NewBus(policy Policy) (b *Bus, err error) {
	switch policy {
	case POLICY_FIXED, POLICY_ROUND_ROBIN:
	default:
		err = ErrPolicyInvalid
		return
	}

	b = &Bus{
		Log:    logrus.StandardLogger(),
		Policy: policy,
	}
	b.Reset()

	return
}

// Attach connects a slave to a slave index.
func (b *Bus) Attach(index int, slave Slave) (err error) {
	if index < 0 || index >= SLAVE_CH {
		err = ErrSlaveInvalid
		return
	}
	if b.slave[index] != nil {
		err = ErrSlaveAttached
		return
	}

	b.slave[index] = slave
	return
}

// Slave returns the slave attached at index, or nil.
func (b *Bus) Slave(index int) Slave {
	if index < 0 || index >= SLAVE_CH {
		return nil
	}
	return b.slave[index]
}

// Reset returns every master to IDLE and releases the bus.
func (b *Bus) Reset() {
	clear(b.port[:])
	b.owner = MASTER_CH - 1
	b.granted = false
	b.Cycles = 0
}

// Owner returns the master holding the bus, if any.
func (b *Bus) Owner() (master int, granted bool) {
	return b.owner, b.granted
}

// State returns the bus interface state of a master.
func (b *Bus) State(master int) State {
	if master < 0 || master >= MASTER_CH {
		return STATE_IDLE
	}
	return b.port[master].State
}

// Port returns a copy of a master's bus interface.
func (b *Bus) Port(master int) (port Port) {
	if master < 0 || master >= MASTER_CH {
		return
	}
	return b.port[master]
}

// Request issues a transaction for a master, moving it from IDLE to REQ.
// The slave is decoded from the address immediately.
func (b *Bus) Request(master int, address uint32, write bool, data uint32) (err error) {
	if master < 0 || master >= MASTER_CH {
		err = ErrMasterInvalid
		return
	}

	port := &b.port[master]
	if port.State != STATE_IDLE || port.Done {
		err = ErrMasterBusy
		return
	}

	port.State = STATE_REQ
	port.Waited = 0
	port.Transaction = Transaction{
		Master:  master,
		Address: address,
		Write:   write,
		Data:    data,
		Slave:   SlaveIndex(address),
	}

	return
}

// Collect returns the result of a master's completed transaction, clears
// it, and returns the master to IDLE. ok is false if no transaction has
// completed.
func (b *Bus) Collect(master int) (data uint32, ok bool) {
	if master < 0 || master >= MASTER_CH {
		return
	}

	port := &b.port[master]
	if !port.Done {
		return
	}

	port.Done = false
	port.State = STATE_IDLE
	data = port.Data
	ok = true
	return
}

// arbitrate selects the next owner among requesting masters.
func (b *Bus) arbitrate() (master int, ok bool) {
	start := 0
	if b.Policy == POLICY_ROUND_ROBIN {
		start = (b.owner + 1) % MASTER_CH
	}

	for n := range MASTER_CH {
		master = (start + n) % MASTER_CH
		if b.port[master].State == STATE_REQ {
			ok = true
			return
		}
	}

	return
}

// Cycle advances the bus by one clock. If the bus is free, a requesting
// master is granted ACCESS. The owner's transaction is presented to the
// decoded slave; a ready slave completes it and releases the bus, a slave
// that is not ready holds the owner in STALL. A completed master stays in
// ACCESS until its result is collected.
//
// There is no timeout: an absent or unresponsive slave stalls its master
// forever.
func (b *Bus) Cycle() {
	b.Cycles++

	if !b.granted {
		master, ok := b.arbitrate()
		if ok {
			b.owner = master
			b.granted = true
			b.port[master].State = STATE_ACCESS
		}
	}

	if b.granted {
		port := &b.port[b.owner]
		txn := port.Transaction

		var data uint32
		var ready bool
		slave := b.slave[txn.Slave]
		if slave != nil {
			data, ready = slave.Access(txn)
		}

		if ready {
			if txn.Write {
				data = 0
			}
			port.State = STATE_ACCESS
			port.Data = data
			port.Done = true
			b.granted = false
		} else {
			port.State = STATE_STALL
		}

		if b.Verbose {
			b.Log.WithFields(logrus.Fields{
				"cycle":  b.Cycles,
				"master": txn.Master,
				"slave":  txn.Slave,
				"state":  port.State.String(),
				"ready":  ready,
			}).Debugf("bus: %v", txn)
		}
	}

	for n := range b.port {
		port := &b.port[n]
		if port.State == STATE_REQ || port.State == STATE_STALL {
			port.Waited++
		}
	}
}
