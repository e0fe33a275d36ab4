package cpu

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/azpr/bus"
)

const testSpmBase = 0x0800_0000

// testMemory is a word memory that is not ready for wait cycles per access.
type testMemory struct {
	wait     int
	pending  int
	words    map[uint32]uint32
	accesses []bus.Transaction
}

func (tm *testMemory) Access(txn bus.Transaction) (data uint32, ready bool) {
	tm.accesses = append(tm.accesses, txn)
	if tm.pending < tm.wait {
		tm.pending++
		return
	}
	tm.pending = 0

	if tm.words == nil {
		tm.words = make(map[uint32]uint32)
	}
	if txn.Write {
		tm.words[txn.Offset()] = txn.Data
	} else {
		data = tm.words[txn.Offset()]
	}
	ready = true
	return
}

var testHalt = []string{
	"HALT: b HALT",
	"nop",
}

// newTestCpu assembles the source into a ROM at slave 0, with a data
// memory at slave 1.
func newTestCpu(t *testing.T, source ...string) (cpu *Cpu, asm *Assembler) {
	asm = &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(source, "\n")))
	require.NoError(t, err)

	b, err := bus.NewBus(bus.POLICY_FIXED)
	require.NoError(t, err)

	rom := &testMemory{words: map[uint32]uint32{}}
	for n, code := range prog.Binary() {
		rom.words[uint32(n*ISA_WORD_SIZE)] = code
	}
	require.NoError(t, b.Attach(0, rom))
	require.NoError(t, b.Attach(1, &testMemory{}))

	cpu, err = NewCpu(b, 0, 1)
	require.NoError(t, err)
	return
}

func testData(cpu *Cpu) *testMemory {
	return cpu.Bus.Slave(1).(*testMemory)
}

// runIdle ticks the cpu until it reaches an idle loop.
func runIdle(t *testing.T, cpu *Cpu, limit int) {
	for range limit {
		require.NoError(t, cpu.Tick())
		if cpu.Idle {
			return
		}
	}
	t.Fatalf("no idle loop after %d ticks\n%v", limit, cpu)
}

func TestNewCpu(t *testing.T) {
	assert := assert.New(t)

	b, err := bus.NewBus(bus.POLICY_FIXED)
	assert.NoError(err)

	_, err = NewCpu(b, 0, bus.MASTER_CH)
	assert.ErrorIs(err, bus.ErrMasterInvalid)

	_, err = NewCpu(b, -1, 1)
	assert.ErrorIs(err, bus.ErrMasterInvalid)

	cpu, err := NewCpu(b, 2, 3)
	assert.NoError(err)
	assert.Equal(uint32(0), cpu.Pc())
	assert.Equal(MODE_KERNEL, cpu.Mode())
	assert.Equal(PHASE_FETCH, cpu.Phase)
}

func TestCpu_Alu(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, append([]string{
		"li r1 5",
		"li r2 0x12345678",
		"addur r3 r1 r2",
		"subur r4 r1 r2",
		"xori r5 r2 0xffff",
		"addsi r6 r1 -6",
		"shlli r7 r1 4",
		"shrlr r8 r2 r1",
	}, testHalt...)...)

	runIdle(t, cpu, 100)

	assert.Equal(uint32(5), cpu.Register[1])
	assert.Equal(uint32(0x1234_5678), cpu.Register[2])
	assert.Equal(uint32(0x1234_567d), cpu.Register[3])
	assert.Equal(uint32(0xedcb_a98d), cpu.Register[4])
	assert.Equal(uint32(0x1234_a987), cpu.Register[5])
	assert.Equal(uint32(0xffff_ffff), cpu.Register[6])
	assert.Equal(uint32(0x50), cpu.Register[7])
	assert.Equal(uint32(0x0091_a2b3), cpu.Register[8])
	assert.Equal(0, cpu.Exception.Taken)
}

func TestCpu_DelaySlot(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, append([]string{
		"b SKIP",
		"addui r2 r0 7",
		"addui r3 r0 9",
		"SKIP: bne r0 r0 SKIP",
		"addui r4 r0 1",
		"addui r5 r0 2",
	}, testHalt...)...)

	runIdle(t, cpu, 100)

	assert.Equal(uint32(7), cpu.Register[2])
	assert.Equal(uint32(0), cpu.Register[3])
	assert.Equal(uint32(1), cpu.Register[4])
	assert.Equal(uint32(2), cpu.Register[5])
}

func TestCpu_Branch(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		op    string
		a, b  uint32
		taken bool
	}{
		{"be", 5, 5, true},
		{"be", 5, 6, false},
		{"bne", 5, 6, true},
		{"bne", 5, 5, false},
		{"bsgt", 0xffff_ffff, 1, true},
		{"bsgt", 1, 0xffff_ffff, false},
		{"bsgt", 1, 1, false},
		{"bugt", 1, 0xffff_ffff, true},
		{"bugt", 0xffff_ffff, 1, false},
		{"bugt", 1, 1, false},
	}

	for _, entry := range table {
		cpu, _ := newTestCpu(t,
			fmt.Sprintf("li r1 0x%x", entry.a),
			fmt.Sprintf("li r2 0x%x", entry.b),
			entry.op+" r1 r2 TAKEN",
			"nop",
			"addui r3 r0 1",
			"HALT: b HALT",
			"nop",
			"TAKEN: addui r3 r0 2",
			"HALT2: b HALT2",
			"nop",
		)

		runIdle(t, cpu, 100)

		expect := uint32(1)
		if entry.taken {
			expect = 2
		}
		assert.Equal(expect, cpu.Register[3], "%v 0x%x 0x%x", entry.op, entry.a, entry.b)
	}
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu, asm := newTestCpu(t, append([]string{
		"la r5 FUNC",
		"CALL: call r5",
		"nop",
		"RET: addui r2 r0 1",
	}, append(testHalt,
		"FUNC: addui r3 r0 2",
		"ret",
		"addui r4 r0 3",
	)...)...)

	runIdle(t, cpu, 100)

	assert.Equal(asm.Label["RET"], cpu.Register[REG_LINK])
	assert.Equal(asm.Label["CALL"]+8, cpu.Register[REG_LINK])
	assert.Equal(uint32(1), cpu.Register[2])
	assert.Equal(uint32(2), cpu.Register[3])
	assert.Equal(uint32(3), cpu.Register[4])
}

func TestCpu_JumpAligned(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, append([]string{
		"la r5 TARGET",
		"addui r5 r5 3",
		"jmp r5",
		"nop",
		"addui r2 r0 1",
		"TARGET: addui r3 r0 1",
	}, testHalt...)...)

	runIdle(t, cpu, 100)

	assert.Equal(uint32(0), cpu.Register[2])
	assert.Equal(uint32(1), cpu.Register[3])
	assert.Equal(0, cpu.Exception.Taken)
}

func TestCpu_LoadStore(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, append([]string{
		"li r1 0x08000000",
		"li r2 0x1234",
		"stw r2 r1 4",
		"ldw r3 r1 4",
		"addui r4 r3 1",
		"ldw r5 r1 8",
	}, testHalt...)...)

	testData(cpu).words = map[uint32]uint32{8: 0xcafe_f00d}

	runIdle(t, cpu, 100)

	assert.Equal(uint32(0x1234), testData(cpu).words[4])
	assert.Equal(uint32(0x1234), cpu.Register[3])
	assert.Equal(uint32(0x1235), cpu.Register[4])
	assert.Equal(uint32(0xcafe_f00d), cpu.Register[5])
	assert.Len(testData(cpu).accesses, 3)
}

func TestCpu_LoadStoreTiming(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t,
		"ldw r1 r0 0",
		"addui r2 r0 1",
	)

	// Fetch executes the load, which then needs a data cycle.
	assert.NoError(cpu.Tick())
	assert.Equal(PHASE_MEMORY, cpu.Phase)
	assert.Equal(0, cpu.Retired)

	assert.NoError(cpu.Tick())
	assert.Equal(PHASE_FETCH, cpu.Phase)
	assert.Equal(1, cpu.Retired)
	assert.Equal(uint32(4), cpu.Pc())

	assert.NoError(cpu.Tick())
	assert.Equal(2, cpu.Retired)
	assert.Equal(uint32(1), cpu.Register[2])
}

func TestCpu_Stall(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, "addui r1 r0 1")
	cpu.Bus.Slave(0).(*testMemory).wait = 2

	assert.NoError(cpu.Tick())
	assert.True(cpu.Blocked())
	assert.Equal(1, cpu.Waiting())

	assert.NoError(cpu.Tick())
	assert.True(cpu.Blocked())
	assert.Equal(2, cpu.Waiting())

	assert.NoError(cpu.Tick())
	assert.False(cpu.Blocked())
	assert.Equal(0, cpu.Waiting())

	assert.Equal(3, cpu.Ticks)
	assert.Equal(2, cpu.Stalls)
	assert.Equal(1, cpu.Retired)
	assert.Equal(uint32(1), cpu.Register[1])
}

func TestCpu_ZeroRegister(t *testing.T) {
	assert := assert.New(t)

	source := append([]string{"addui r0 r0 5", "addui r1 r0 1"}, testHalt...)

	cpu, _ := newTestCpu(t, source...)
	runIdle(t, cpu, 100)
	assert.Equal(uint32(5), cpu.Register[0])
	assert.Equal(uint32(6), cpu.Register[1])

	cpu, _ = newTestCpu(t, source...)
	cpu.ZeroRegister = true
	runIdle(t, cpu, 100)
	assert.Equal(uint32(0), cpu.Register[0])
	assert.Equal(uint32(1), cpu.Register[1])
}

// exceptionSource installs HANDLER as the exception vector, then runs the
// body. The handler records CAUSE in r20, EPC in r21 and PRE_STATUS in r22.
func exceptionSource(body ...string) (source []string) {
	source = append(source,
		"la r9 HANDLER",
		"wrcr exp_vector r9",
	)
	source = append(source, body...)
	source = append(source, testHalt...)
	source = append(source,
		"HANDLER: rdcr r20 cause",
		"rdcr r21 epc",
		"rdcr r22 pre_status",
		"HHALT: b HHALT",
		"nop",
	)
	return
}

func TestCpu_Exceptions(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name  string
		body  []string
		cause ExceptionCode
	}{
		{"overflow", []string{"li r1 0x7fffffff", "EXP: addsi r2 r1 1"}, EXP_OVERFLOW},
		{"undef", []string{"EXP: .word 0x70000000"}, EXP_UNDEF_INSN},
		{"trap", []string{"EXP: trap"}, EXP_TRAP},
		{"miss_align", []string{"li r1 0x08000002", "EXP: ldw r2 r1 0"}, EXP_MISS_ALIGN},
		{"miss_align_stw", []string{"li r1 0x08000000", "EXP: stw r2 r1 6"}, EXP_MISS_ALIGN},
		{"prv_wrcr", []string{"li r1 1", "wrcr status r1", "EXP: wrcr status r0"}, EXP_PRV_VIO},
		{"prv_exrt", []string{"li r1 1", "wrcr status r1", "EXP: exrt"}, EXP_PRV_VIO},
		{"user_trap", []string{"li r1 1", "wrcr status r1", "EXP: trap"}, EXP_TRAP},
	}

	for _, entry := range table {
		cpu, asm := newTestCpu(t, exceptionSource(entry.body...)...)

		runIdle(t, cpu, 200)

		assert.Equal(asm.Label["HHALT"], cpu.Pc(), entry.name)
		assert.Equal(uint32(entry.cause), cpu.Register[20], entry.name)
		assert.Equal(asm.Label["EXP"], cpu.Register[21], entry.name)
		assert.Equal(uint32(0), cpu.Register[2], entry.name)
		assert.Equal(MODE_KERNEL, cpu.Mode(), entry.name)
		assert.Equal(EXCEPTION_IN_HANDLER, cpu.Exception.State, entry.name)
		assert.Equal(1, cpu.Exception.Taken, entry.name)
		assert.Len(testData(cpu).accesses, 0, entry.name)
	}
}

func TestCpu_ExceptionStateBetweenTicks(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, exceptionSource("EXP: trap")...)

	var seen []ExceptionState
	for range 200 {
		require.NoError(t, cpu.Tick())
		state := cpu.Exception.State
		if len(seen) == 0 || seen[len(seen)-1] != state {
			seen = append(seen, state)
		}
		if cpu.Idle {
			break
		}
	}

	assert.Equal([]ExceptionState{EXCEPTION_NORMAL, EXCEPTION_IN_HANDLER}, seen)
}

func TestCpu_UserMode(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, exceptionSource(
		"li r1 1",
		"wrcr status r1",
		"rdcr r3 status",
		"rdcr r4 cpu_info",
		"wrcr exp_vector r0",
	)...)
	cpu.CpuInfo = 0x0229_0700
	cpu.Reset()

	runIdle(t, cpu, 200)

	assert.Equal(uint32(1), cpu.Register[3])
	assert.Equal(uint32(0x0229_0700), cpu.Register[4])
	assert.Equal(uint32(EXP_PRV_VIO), cpu.Register[20])
	assert.Equal(STATUS_EXE_MODE, cpu.Register[22])
	assert.NotEqual(uint32(0), cpu.Creg.ExpVector)
}

func TestCpu_ReadOnlyCreg(t *testing.T) {
	assert := assert.New(t)

	cpu, asm := newTestCpu(t, exceptionSource(
		"li r1 0x1234",
		"wrcr cpu_info r1",
		"wrcr pc r1",
		"rdcr r2 cpu_info",
		"rdcr r3 rom_size",
		"READ_PC: rdcr r4 pc",
	)...)
	cpu.CpuInfo = 0x0229_0700
	cpu.RomSize = 0x2000
	cpu.Reset()

	runIdle(t, cpu, 200)

	assert.Equal(uint32(0x0229_0700), cpu.Register[2])
	assert.Equal(uint32(0x2000), cpu.Register[3])
	assert.Equal(asm.Label["READ_PC"], cpu.Register[4])
	assert.Equal(0, cpu.Exception.Taken)
}

func TestCpu_TrapReturn(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, append([]string{
		"la r9 HANDLER",
		"wrcr exp_vector r9",
		"trap",
		"addui r1 r0 1",
	}, append(testHalt,
		"HANDLER: rdcr r20 epc",
		"addui r20 r20 4",
		"wrcr epc r20",
		"addui r2 r2 1",
		"exrt",
	)...)...)

	runIdle(t, cpu, 200)

	assert.Equal(uint32(1), cpu.Register[1])
	assert.Equal(uint32(1), cpu.Register[2])
	assert.Equal(1, cpu.Exception.Taken)
	assert.Equal(EXCEPTION_NORMAL, cpu.Exception.State)
	assert.Equal(MODE_KERNEL, cpu.Mode())
}

func TestCpu_Interrupt(t *testing.T) {
	assert := assert.New(t)

	cpu, asm := newTestCpu(t, exceptionSource(
		"li r1 0x2",
		"wrcr status r1",
		"LOOP: b LOOP",
		"nop",
	)...)

	cpu.SetIrq(3, true)
	runIdle(t, cpu, 200)

	assert.Equal(uint32(EXP_EXT_INT), cpu.Register[20])
	assert.Equal(asm.Label["LOOP"], cpu.Register[21])
	assert.Equal(STATUS_INT_ENABLE, cpu.Register[22])
	assert.Equal(uint32(1<<3), cpu.Creg.Irq)
	assert.False(cpu.Creg.InterruptEnabled())
}

func TestCpu_InterruptMasked(t *testing.T) {
	assert := assert.New(t)

	cpu, asm := newTestCpu(t, exceptionSource(
		"li r1 0x8",
		"wrcr int_mask r1",
		"li r1 0x2",
		"wrcr status r1",
		"LOOP: b LOOP",
		"nop",
	)...)

	cpu.SetIrq(3, true)
	runIdle(t, cpu, 200)

	assert.Equal(asm.Label["LOOP"], cpu.Pc())
	assert.Equal(0, cpu.Exception.Taken)
	assert.Equal(uint32(1<<3), cpu.Creg.Irq)
}

func TestCpu_InterruptDelaySlot(t *testing.T) {
	assert := assert.New(t)

	cpu, asm := newTestCpu(t, append([]string{
		"la r9 HANDLER",
		"wrcr exp_vector r9",
		"li r1 0x2",
		"wrcr status r1",
		"b TARGET",
		"SLOT: addui r1 r0 1",
		"addui r3 r0 3",
		"TARGET: addui r2 r0 2",
	}, append(testHalt,
		"HANDLER: rdcr r20 cause",
		"rdcr r21 epc",
		"wrcr irq r0",
		"exrt",
	)...)...)

	for !cpu.Creg.Delay() {
		require.NoError(t, cpu.Tick())
	}
	assert.Equal(asm.Label["SLOT"], cpu.Pc())
	assert.Equal(asm.Label["TARGET"], cpu.Target)

	cpu.SetIrq(0, true)
	for cpu.Exception.State != EXCEPTION_IN_HANDLER {
		require.NoError(t, cpu.Tick())
	}
	assert.Equal(uint32(0x2), cpu.Register[1])
	cpu.SetIrq(0, false)

	runIdle(t, cpu, 200)

	assert.Equal(uint32(EXP_EXT_INT)|CAUSE_DELAY, cpu.Register[20])
	assert.Equal(asm.Label["SLOT"], cpu.Register[21])
	assert.Equal(uint32(1), cpu.Register[1])
	assert.Equal(uint32(2), cpu.Register[2])
	assert.Equal(uint32(0), cpu.Register[3])
	assert.Equal(1, cpu.Exception.Taken)
	assert.True(cpu.Creg.InterruptEnabled())
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newTestCpu(t, "addui r31 r0 0x55")
	assert.NoError(cpu.Tick())

	text := cpu.String()
	assert.Contains(text, "pc: 0000_0004")
	assert.Contains(text, "r31: 0000_0055")
	assert.Contains(text, "mode: kernel")
}
