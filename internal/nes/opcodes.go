package nes

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

//go:embed opcode_matrix.csv
var opcodeMatrixFileData []byte

// initInstructions fills the decode table from the embedded opcode matrix.
// The matrix is a build-time asset, so a malformed row is a programmer
// error and panics rather than returning.
func (c *CPU) initInstructions() {
	if err := c.parseOpcodeMatrix(); err != nil {
		panic(fmt.Sprintf("opcode matrix: %v", err))
	}
	for opcode, in := range c.instrs {
		if in.fn == nil {
			panic(fmt.Sprintf("opcode matrix: opcode 0x%02X is not defined", opcode))
		}
	}
}

func (c *CPU) parseOpcodeMatrix() error {
	r := csv.NewReader(bytes.NewReader(opcodeMatrixFileData))
	_, _ = r.Read() // skip header
	r.ReuseRecord = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("couldn't read data from csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		if len(record) != 4 {
			return fmt.Errorf("invalid format for the record: %s: must be 4 parts", strings.Join(record, string(r.Comma)))
		}

		opcodeByte, err := strconv.ParseUint(record[0], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid format for opcode byte: %w", err)
		}

		opcodeFunc, err := c.opcodeFuncFromMnemonic(record[1])
		if err != nil {
			return fmt.Errorf("invalid format for mnemonic: %w", err)
		}

		mode, err := addrModeFromString(record[2])
		if err != nil {
			return fmt.Errorf("invalid format for address mode: %w", err)
		}

		cycles, err := strconv.ParseUint(record[3], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid format for opcode cycles: %w", err)
		}

		c.instrs[opcodeByte] = instr{
			name:   record[1],
			mode:   mode,
			fn:     opcodeFunc,
			cycles: uint8(cycles),
			noRead: isWriteOnly(record[1]),
		}
	}

	return nil
}

// isWriteOnly reports whether a mnemonic never uses the value at its
// effective address, so the operand fetch must not read it.
func isWriteOnly(mnemonic string) bool {
	switch mnemonic {
	case "STA", "STX", "STY", "SAX", "SHA", "SHX", "SHY", "TAS", "JMP", "JSR":
		return true
	}
	return false
}

func addrModeFromString(s string) (addrMode, error) {
	switch s {
	case "IMM":
		return addrModeIMM, nil
	case "ZP":
		return addrModeZP, nil
	case "ZPX":
		return addrModeZPX, nil
	case "ZPY":
		return addrModeZPY, nil
	case "ABS":
		return addrModeABS, nil
	case "ABSX":
		return addrModeABSX, nil
	case "ABSY":
		return addrModeABSY, nil
	case "IND":
		return addrModeIND, nil
	case "INDX":
		return addrModeINDX, nil
	case "INDY":
		return addrModeINDY, nil
	case "REL":
		return addrModeREL, nil
	case "ACC":
		return addrModeACC, nil
	case "IMP":
		return addrModeIMP, nil
	}
	return 0, fmt.Errorf("unknown address mode %q", s)
}

func (c *CPU) opcodeFuncFromMnemonic(mnemonic string) (func(), error) {
	switch mnemonic {
	case "ADC":
		return c.adc, nil
	case "ALR":
		return c.alr, nil
	case "ANC":
		return c.anc, nil
	case "AND":
		return c.and, nil
	case "ANE":
		return c.ane, nil
	case "ARR":
		return c.arr, nil
	case "ASL":
		return c.asl, nil
	case "BCC":
		return c.bcc, nil
	case "BCS":
		return c.bcs, nil
	case "BEQ":
		return c.beq, nil
	case "BIT":
		return c.bit, nil
	case "BMI":
		return c.bmi, nil
	case "BNE":
		return c.bne, nil
	case "BPL":
		return c.bpl, nil
	case "BRK":
		return c.brk, nil
	case "BVC":
		return c.bvc, nil
	case "BVS":
		return c.bvs, nil
	case "CLC":
		return c.clc, nil
	case "CLD":
		return c.cld, nil
	case "CLI":
		return c.cli, nil
	case "CLV":
		return c.clv, nil
	case "CMP":
		return c.cmp, nil
	case "CPX":
		return c.cpx, nil
	case "CPY":
		return c.cpy, nil
	case "DCP":
		return c.dcp, nil
	case "DEC":
		return c.dec, nil
	case "DEX":
		return c.dex, nil
	case "DEY":
		return c.dey, nil
	case "EOR":
		return c.eor, nil
	case "HLT":
		return c.hlt, nil
	case "INC":
		return c.inc, nil
	case "INX":
		return c.inx, nil
	case "INY":
		return c.iny, nil
	case "ISC":
		return c.isc, nil
	case "JMP":
		return c.jmp, nil
	case "JSR":
		return c.jsr, nil
	case "LAS":
		return c.las, nil
	case "LAX":
		return c.lax, nil
	case "LDA":
		return c.lda, nil
	case "LDX":
		return c.ldx, nil
	case "LDY":
		return c.ldy, nil
	case "LSR":
		return c.lsr, nil
	case "LXA":
		return c.lxa, nil
	case "NOP":
		return c.nop, nil
	case "ORA":
		return c.ora, nil
	case "PHA":
		return c.pha, nil
	case "PHP":
		return c.php, nil
	case "PLA":
		return c.pla, nil
	case "PLP":
		return c.plp, nil
	case "RLA":
		return c.rla, nil
	case "ROL":
		return c.rol, nil
	case "ROR":
		return c.ror, nil
	case "RRA":
		return c.rra, nil
	case "RTI":
		return c.rti, nil
	case "RTS":
		return c.rts, nil
	case "SAX":
		return c.sax, nil
	case "SBC":
		return c.sbc, nil
	case "SBX":
		return c.sbx, nil
	case "SEC":
		return c.sec, nil
	case "SED":
		return c.sed, nil
	case "SEI":
		return c.sei, nil
	case "SHA":
		return c.sha, nil
	case "SHX":
		return c.shx, nil
	case "SHY":
		return c.shy, nil
	case "SLO":
		return c.slo, nil
	case "SRE":
		return c.sre, nil
	case "STA":
		return c.sta, nil
	case "STX":
		return c.stx, nil
	case "STY":
		return c.sty, nil
	case "TAS":
		return c.tas, nil
	case "TAX":
		return c.tax, nil
	case "TAY":
		return c.tay, nil
	case "TSX":
		return c.tsx, nil
	case "TXA":
		return c.txa, nil
	case "TXS":
		return c.txs, nil
	case "TYA":
		return c.tya, nil
	}
	return nil, fmt.Errorf("unknown mnemonic %q", mnemonic)
}
