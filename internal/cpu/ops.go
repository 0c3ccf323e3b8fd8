package cpu

import (
	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/bus"
)

// Instruction is a decoded opcode with every operand field extracted.
type Instruction struct {
	Opcode uint16
	X, Y   byte
	N      byte
	KK     byte
	NNN    uint16
}

func Decode(op uint16) Instruction {
	return Instruction{
		Opcode: op,
		X:      byte(op>>8) & 0x0F,
		Y:      byte(op>>4) & 0x0F,
		N:      byte(op) & 0x0F,
		KK:     byte(op),
		NNN:    op & 0x0FFF,
	}
}

type handler func(c *CPU, in Instruction) error

// families is indexed by the top nibble. Families sharing a nibble
// dispatch again on the low bits through the tables below.
var families = [16]handler{
	0x0: execSystem,
	0x1: opJP,
	0x2: opCALL,
	0x3: opSEImm,
	0x4: opSNEImm,
	0x5: opSEReg,
	0x6: opLDImm,
	0x7: opADDImm,
	0x8: execALU,
	0x9: opSNEReg,
	0xA: opLDI,
	0xB: opJPV0,
	0xC: opRND,
	0xD: opDRW,
	0xE: execKey,
	0xF: execMisc,
}

var systemOps = map[uint16]handler{
	0x00E0: opCLS,
	0x00EE: opRET,
}

var aluOps = [16]handler{
	0x0: opLDReg,
	0x1: opOR,
	0x2: opAND,
	0x3: opXOR,
	0x4: opADD,
	0x5: opSUB,
	0x6: opSHR,
	0x7: opSUBN,
	0xE: opSHL,
}

var keyOps = map[byte]handler{
	0x9E: opSKP,
	0xA1: opSKNP,
}

var miscOps = map[byte]handler{
	0x07: opLDVxDT,
	0x0A: opLDVxK,
	0x15: opLDDTVx,
	0x18: opLDSTVx,
	0x1E: opADDI,
	0x29: opLDF,
	0x33: opLDB,
	0x55: opStoreRegs,
	0x65: opLoadRegs,
}

func (c *CPU) execute(in Instruction) error {
	return families[in.Opcode>>12](c, in)
}

func execSystem(c *CPU, in Instruction) error {
	if h, ok := systemOps[in.Opcode]; ok {
		return h(c, in)
	}
	// 0nnn machine code routines are not supported
	return errUnknownOpcode
}

func execALU(c *CPU, in Instruction) error {
	if h := aluOps[in.N]; h != nil {
		return h(c, in)
	}
	return errUnknownOpcode
}

func execKey(c *CPU, in Instruction) error {
	if h, ok := keyOps[in.KK]; ok {
		return h(c, in)
	}
	return errUnknownOpcode
}

func execMisc(c *CPU, in Instruction) error {
	if h, ok := miscOps[in.KK]; ok {
		return h(c, in)
	}
	return errUnknownOpcode
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.PC += 2
	}
}

func opCLS(c *CPU, _ Instruction) error {
	c.screen.Clear()
	return nil
}

func opRET(c *CPU, _ Instruction) error {
	if c.SP == 0 {
		return ErrStackUnderflow
	}
	c.SP--
	c.PC = c.Stack[c.SP]
	return nil
}

func opJP(c *CPU, in Instruction) error {
	c.PC = in.NNN
	return nil
}

func opCALL(c *CPU, in Instruction) error {
	if c.SP == StackSize {
		return ErrStackOverflow
	}
	c.Stack[c.SP] = c.PC
	c.SP++
	c.PC = in.NNN
	return nil
}

func opSEImm(c *CPU, in Instruction) error {
	c.skipIf(c.V[in.X] == in.KK)
	return nil
}

func opSNEImm(c *CPU, in Instruction) error {
	c.skipIf(c.V[in.X] != in.KK)
	return nil
}

func opSEReg(c *CPU, in Instruction) error {
	if in.N != 0 {
		return errUnknownOpcode
	}
	c.skipIf(c.V[in.X] == c.V[in.Y])
	return nil
}

func opSNEReg(c *CPU, in Instruction) error {
	if in.N != 0 {
		return errUnknownOpcode
	}
	c.skipIf(c.V[in.X] != c.V[in.Y])
	return nil
}

func opLDImm(c *CPU, in Instruction) error {
	c.V[in.X] = in.KK
	return nil
}

func opADDImm(c *CPU, in Instruction) error {
	c.V[in.X] += in.KK
	return nil
}

func opLDReg(c *CPU, in Instruction) error {
	c.V[in.X] = c.V[in.Y]
	return nil
}

func opOR(c *CPU, in Instruction) error {
	c.V[in.X] |= c.V[in.Y]
	return nil
}

func opAND(c *CPU, in Instruction) error {
	c.V[in.X] &= c.V[in.Y]
	return nil
}

func opXOR(c *CPU, in Instruction) error {
	c.V[in.X] ^= c.V[in.Y]
	return nil
}

// The flag-setting ALU ops read both operands first and write VF before
// Vx, so with x == F the result ends up in VF.

func opADD(c *CPU, in Instruction) error {
	sum := uint16(c.V[in.X]) + uint16(c.V[in.Y])
	c.V[0xF] = flag(sum > 0xFF)
	c.V[in.X] = byte(sum)
	return nil
}

func opSUB(c *CPU, in Instruction) error {
	vx, vy := c.V[in.X], c.V[in.Y]
	c.V[0xF] = flag(vx > vy)
	c.V[in.X] = vx - vy
	return nil
}

func opSHR(c *CPU, in Instruction) error {
	vx := c.V[in.X]
	c.V[0xF] = vx & 0x01
	c.V[in.X] = vx >> 1
	return nil
}

func opSUBN(c *CPU, in Instruction) error {
	vx, vy := c.V[in.X], c.V[in.Y]
	c.V[0xF] = flag(vy >= vx)
	c.V[in.X] = vy - vx
	return nil
}

func opSHL(c *CPU, in Instruction) error {
	vx := c.V[in.X]
	c.V[0xF] = vx >> 7
	c.V[in.X] = vx << 1
	return nil
}

func opLDI(c *CPU, in Instruction) error {
	c.I = in.NNN
	return nil
}

func opJPV0(c *CPU, in Instruction) error {
	c.PC = in.NNN + uint16(c.V[0])
	return nil
}

func opRND(c *CPU, in Instruction) error {
	c.V[in.X] = byte(c.rng.Uint32()) & in.KK
	return nil
}

func opDRW(c *CPU, in Instruction) error {
	sprite, err := c.bus.Slice(c.I, int(in.N))
	if err != nil {
		return err
	}
	c.V[0xF] = c.screen.Draw(sprite, c.V[in.X], c.V[in.Y])
	return nil
}

func opSKP(c *CPU, in Instruction) error {
	c.skipIf(c.keys.IsPressed(c.V[in.X] & 0x0F))
	return nil
}

func opSKNP(c *CPU, in Instruction) error {
	c.skipIf(!c.keys.IsPressed(c.V[in.X] & 0x0F))
	return nil
}

func opLDVxDT(c *CPU, in Instruction) error {
	c.V[in.X] = c.timers.Delay()
	return nil
}

// opLDVxK arms the keypad on first execution and then keeps returning
// ErrAwaitKey until a press made after arming is available.
func opLDVxK(c *CPU, in Instruction) error {
	if !c.waiting {
		c.keys.Arm()
		c.waiting = true
		return ErrAwaitKey
	}
	key, ok := c.keys.TakePress()
	if !ok {
		return ErrAwaitKey
	}
	c.waiting = false
	c.V[in.X] = key
	return nil
}

func opLDDTVx(c *CPU, in Instruction) error {
	c.timers.SetDelay(c.V[in.X])
	return nil
}

func opLDSTVx(c *CPU, in Instruction) error {
	c.timers.SetSound(c.V[in.X])
	return nil
}

func opADDI(c *CPU, in Instruction) error {
	sum := uint32(c.I) + uint32(c.V[in.X])
	c.V[0xF] = flag(sum > bus.MaxAddress)
	c.I = uint16(sum)
	return nil
}

func opLDF(c *CPU, in Instruction) error {
	c.I = bus.FontAddr(c.V[in.X])
	return nil
}

func opLDB(c *CPU, in Instruction) error {
	v := c.V[in.X]
	return c.bus.WriteBlock(c.I, []byte{v / 100, v / 10 % 10, v % 10})
}

func opStoreRegs(c *CPU, in Instruction) error {
	n := uint16(in.X) + 1
	if err := c.bus.WriteBlock(c.I, c.V[:n]); err != nil {
		return err
	}
	c.I += n
	return nil
}

func opLoadRegs(c *CPU, in Instruction) error {
	n := uint16(in.X) + 1
	src, err := c.bus.Slice(c.I, int(n))
	if err != nil {
		return err
	}
	copy(c.V[:n], src)
	c.I += n
	return nil
}
