package mailbox

import (
	"context"
	"reflect"

	"github.com/codewandler/mbox-go/internal/reflector"
)

// Typed mailboxes bind a handler with a fixed argument list. Arguments are
// encoded one after another with the manager's codec and decoded in the
// same order; a payload that fails to decode, or has bytes left over, is
// rejected with ErrDecode and the handler does not run.
//
// AddrN carries the argument types, so SendN only compiles with matching
// arguments. Both ends must use the same codec.

// Addr0 is the address of a mailbox taking no arguments.
type Addr0 struct{ Address }

type Mailbox0 struct{ raw *Raw }

func New0(m *Manager, handler func(), mode CallbackMode) *Mailbox0 {
	sig := reflector.Signature()
	raw := NewRaw(m, func(payload []byte) error {
		if err := m.decodeArgs(sig, payload); err != nil {
			return err
		}
		handler()
		return nil
	}, mode)
	return &Mailbox0{raw: raw}
}

func (mb *Mailbox0) Address() Addr0 { return Addr0{mb.raw.Address()} }
func (mb *Mailbox0) Close()         { mb.raw.Close() }

func Send0(ctx context.Context, m *Manager, to Addr0) error {
	return m.Send(ctx, to.Address, m.encodeArgs())
}

// Addr1 is the address of a mailbox taking one argument of type A.
type Addr1[A any] struct{ Address }

type Mailbox1[A any] struct{ raw *Raw }

func New1[A any](m *Manager, handler func(A), mode CallbackMode) *Mailbox1[A] {
	sig := reflector.Signature(reflect.TypeFor[A]())
	raw := NewRaw(m, func(payload []byte) error {
		var a A
		if err := m.decodeArgs(sig, payload, &a); err != nil {
			return err
		}
		handler(a)
		return nil
	}, mode)
	return &Mailbox1[A]{raw: raw}
}

func (mb *Mailbox1[A]) Address() Addr1[A] { return Addr1[A]{mb.raw.Address()} }
func (mb *Mailbox1[A]) Close()            { mb.raw.Close() }

func Send1[A any](ctx context.Context, m *Manager, to Addr1[A], a A) error {
	return m.Send(ctx, to.Address, m.encodeArgs(a))
}

// Addr2 is the address of a mailbox taking arguments (A, B).
type Addr2[A, B any] struct{ Address }

type Mailbox2[A, B any] struct{ raw *Raw }

func New2[A, B any](m *Manager, handler func(A, B), mode CallbackMode) *Mailbox2[A, B] {
	sig := reflector.Signature(reflect.TypeFor[A](), reflect.TypeFor[B]())
	raw := NewRaw(m, func(payload []byte) error {
		var (
			a A
			b B
		)
		if err := m.decodeArgs(sig, payload, &a, &b); err != nil {
			return err
		}
		handler(a, b)
		return nil
	}, mode)
	return &Mailbox2[A, B]{raw: raw}
}

func (mb *Mailbox2[A, B]) Address() Addr2[A, B] { return Addr2[A, B]{mb.raw.Address()} }
func (mb *Mailbox2[A, B]) Close()               { mb.raw.Close() }

func Send2[A, B any](ctx context.Context, m *Manager, to Addr2[A, B], a A, b B) error {
	return m.Send(ctx, to.Address, m.encodeArgs(a, b))
}

// Addr3 is the address of a mailbox taking arguments (A, B, C).
type Addr3[A, B, C any] struct{ Address }

type Mailbox3[A, B, C any] struct{ raw *Raw }

func New3[A, B, C any](m *Manager, handler func(A, B, C), mode CallbackMode) *Mailbox3[A, B, C] {
	sig := reflector.Signature(reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]())
	raw := NewRaw(m, func(payload []byte) error {
		var (
			a A
			b B
			c C
		)
		if err := m.decodeArgs(sig, payload, &a, &b, &c); err != nil {
			return err
		}
		handler(a, b, c)
		return nil
	}, mode)
	return &Mailbox3[A, B, C]{raw: raw}
}

func (mb *Mailbox3[A, B, C]) Address() Addr3[A, B, C] { return Addr3[A, B, C]{mb.raw.Address()} }
func (mb *Mailbox3[A, B, C]) Close()                  { mb.raw.Close() }

func Send3[A, B, C any](ctx context.Context, m *Manager, to Addr3[A, B, C], a A, b B, c C) error {
	return m.Send(ctx, to.Address, m.encodeArgs(a, b, c))
}
