package cpu

import "fmt"

// LoadError is returned when a program does not fit into memory.
type LoadError struct {
	Size int
	Max  int
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("program of %d bytes exceeds the %d bytes available", e.Size, e.Max)
}

// UnknownOpcodeError is returned when the word at PC does not decode to
// any instruction.
type UnknownOpcodeError struct {
	PC     uint16
	Opcode uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %04X at %03X", e.Opcode, e.PC)
}

// StackOverflowError is returned by a call when the stack is full.
type StackOverflowError struct {
	PC    uint16
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow at %03X, depth %d", e.PC, e.Depth)
}

// StackUnderflowError is returned by a return with an empty stack.
type StackUnderflowError struct {
	PC uint16
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow at %03X", e.PC)
}
