// Package config holds the immutable configuration of a simulated AZPR
// system: memory sizes, bus master and slave assignment, feature flags and
// the informational release fields reported by the CPU.
package config

import (
	"bytes"
	"errors"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ezrec/azpr/bus"
)

const (
	ROM_SIZE = 8192  // Default ROM size in bytes.
	SPM_SIZE = 16384 // Default SPM size in bytes.

	RELEASE_VERSION  = 2  // Default release version.
	RELEASE_YEAR     = 41 // Default release year (year - 1970).
	RELEASE_MONTH    = 7  // Default release month.
	RELEASE_REVISION = 0  // Default release revision.

	IRQ_LINES = 8 // External interrupt lines.
)

// Release is the information packed into the CPU_INFO control register.
type Release struct {
	Version  uint8 `toml:"version" yaml:"version"`
	Year     uint8 `toml:"year" yaml:"year"`
	Month    uint8 `toml:"month" yaml:"month"`
	Revision uint8 `toml:"revision" yaml:"revision"`
}

// Masters assigns bus master indexes.
type Masters struct {
	Fetch  int `toml:"fetch" yaml:"fetch"`   // CPU instruction fetch.
	Memory int `toml:"memory" yaml:"memory"` // CPU data access.
	Dma    int `toml:"dma" yaml:"dma"`       // DMA copier.
}

// Slaves assigns bus slave indexes.
type Slaves struct {
	Rom  int `toml:"rom" yaml:"rom"`
	Spm  int `toml:"spm" yaml:"spm"`
	Uart int `toml:"uart" yaml:"uart"`
	Dma  int `toml:"dma" yaml:"dma"` // DMA copier registers.
}

// Uart configures the UART tape slave.
type Uart struct {
	Enable     bool `toml:"enable" yaml:"enable"`
	WaitStates int  `toml:"wait_states" yaml:"wait_states"` // Not-ready cycles per access.
}

// Dma configures the DMA copier.
type Dma struct {
	Enable bool `toml:"enable" yaml:"enable"`
	Irq    int  `toml:"irq" yaml:"irq"` // Interrupt line raised on completion.
}

// Config is the system configuration.
type Config struct {
	RomSize      uint32  `toml:"rom_size" yaml:"rom_size"`           // ROM size in bytes.
	SpmSize      uint32  `toml:"spm_size" yaml:"spm_size"`           // SPM size in bytes.
	ZeroRegister bool    `toml:"zero_register" yaml:"zero_register"` // Hard-wire r0 to zero.
	Arbitration  string  `toml:"arbitration" yaml:"arbitration"`     // Bus arbitration policy.
	Masters      Masters `toml:"masters" yaml:"masters"`
	Slaves       Slaves  `toml:"slaves" yaml:"slaves"`
	Uart         Uart    `toml:"uart" yaml:"uart"`
	Dma          Dma     `toml:"dma" yaml:"dma"`
	Release      Release `toml:"release" yaml:"release"`
}

// Default returns the reference board configuration.
func Default() Config {
	return Config{
		RomSize:     ROM_SIZE,
		SpmSize:     SPM_SIZE,
		Arbitration: bus.POLICY_FIXED.String(),
		Masters: Masters{
			Fetch:  0,
			Memory: 1,
			Dma:    2,
		},
		Slaves: Slaves{
			Rom:  0,
			Spm:  1,
			Uart: 3,
			Dma:  2,
		},
		Uart: Uart{
			Enable: true,
		},
		Dma: Dma{
			Enable: true,
			Irq:    0,
		},
		Release: Release{
			Version:  RELEASE_VERSION,
			Year:     RELEASE_YEAR,
			Month:    RELEASE_MONTH,
			Revision: RELEASE_REVISION,
		},
	}
}

// Load reads a TOML or YAML file over the default configuration, and
// validates the result.
func Load(path string) (cfg Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	return Parse(filepath.Ext(path), data)
}

// Parse decodes a configuration in the format named by ext (".toml",
// ".yaml" or ".yml") over the default configuration, and validates it.
func Parse(ext string, data []byte) (cfg Config, err error) {
	cfg = Default()

	switch strings.ToLower(ext) {
	case ".toml":
		var md toml.MetaData
		md, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = &ErrConfig{Field: undecoded[0].String(), Err: ErrField}
			}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			// Empty document.
			err = nil
		}
	default:
		err = ErrFormat
	}
	if err != nil {
		return
	}

	err = cfg.Validate()
	return
}

// RomWords is the ROM depth in words.
func (cfg Config) RomWords() int {
	return int(cfg.RomSize / 4)
}

// SpmWords is the SPM depth in words.
func (cfg Config) SpmWords() int {
	return int(cfg.SpmSize / 4)
}

// Policy returns the parsed bus arbitration policy.
func (cfg Config) Policy() (bus.Policy, error) {
	return bus.ParsePolicy(cfg.Arbitration)
}

// CpuInfo packs the release information for the CPU_INFO register.
func (cfg Config) CpuInfo() uint32 {
	rel := cfg.Release
	return uint32(rel.Version)<<24 | uint32(rel.Year)<<16 | uint32(rel.Month)<<8 | uint32(rel.Revision)
}

func validSize(size uint32) bool {
	return size >= 4 && size <= bus.SLAVE_WINDOW && bits.OnesCount32(size) == 1
}

// Validate checks the configuration for values the simulator cannot model.
func (cfg Config) Validate() (err error) {
	var errs []error
	fail := func(field string, err error) {
		errs = append(errs, &ErrConfig{Field: field, Err: err})
	}

	if !validSize(cfg.RomSize) {
		fail("rom_size", ErrSize)
	}
	if !validSize(cfg.SpmSize) {
		fail("spm_size", ErrSize)
	}

	if _, err := cfg.Policy(); err != nil {
		fail("arbitration", ErrPolicy)
	}

	masters := map[string]int{
		"masters.fetch":  cfg.Masters.Fetch,
		"masters.memory": cfg.Masters.Memory,
		"masters.dma":    cfg.Masters.Dma,
	}
	used := make(map[int]string)
	for _, field := range []string{"masters.fetch", "masters.memory", "masters.dma"} {
		index := masters[field]
		if index < 0 || index >= bus.MASTER_CH {
			fail(field, ErrMaster)
			continue
		}
		if _, ok := used[index]; ok {
			fail(field, ErrMaster)
			continue
		}
		used[index] = field
	}

	slaves := []string{"slaves.rom", "slaves.spm"}
	slaveIndex := map[string]int{
		"slaves.rom":  cfg.Slaves.Rom,
		"slaves.spm":  cfg.Slaves.Spm,
		"slaves.uart": cfg.Slaves.Uart,
		"slaves.dma":  cfg.Slaves.Dma,
	}
	if cfg.Uart.Enable {
		slaves = append(slaves, "slaves.uart")
	}
	if cfg.Dma.Enable {
		slaves = append(slaves, "slaves.dma")
	}
	used = make(map[int]string)
	for _, field := range slaves {
		index := slaveIndex[field]
		if index < 0 || index >= bus.SLAVE_CH {
			fail(field, ErrSlave)
			continue
		}
		if _, ok := used[index]; ok {
			fail(field, ErrSlave)
			continue
		}
		used[index] = field
	}

	if cfg.Uart.WaitStates < 0 {
		fail("uart.wait_states", ErrNegative)
	}

	if cfg.Dma.Irq < 0 || cfg.Dma.Irq >= IRQ_LINES {
		fail("dma.irq", ErrIrq)
	}

	err = errors.Join(errs...)
	return
}
