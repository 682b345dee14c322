package eval

import "github.com/quadlang/quad/op"

// Observer receives execution events. Observer methods are called
// synchronously, and returning false from any of them halts execution.
type Observer interface {
	OnStep(event StepEvent) bool
	OnCall(event CallEvent) bool
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes one instruction about to execute.
type StepEvent struct {
	Offset      int // index into the instruction sequence
	Opcode      op.Code
	StackDepth  int // operand stack depth
	ReturnDepth int // return stack depth, bindings included
	FrameDepth  int
}

// CallEvent describes a procedure call.
type CallEvent struct {
	Name       string
	Offset     int // offset of the call site
	FrameDepth int // depth after the call
}

// ReturnEvent describes a procedure return.
type ReturnEvent struct {
	Name       string
	FrameDepth int // depth after returning
}

// NoOpObserver is an Observer that does nothing. Embed it to implement only
// the methods you need.
type NoOpObserver struct{}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
