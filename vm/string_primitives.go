package vm

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerStringPrimitives() {
	c := vm.StringClass

	length := func(vm *VM, recv Value) Value {
		return FromInt(int64(charCount(vm.Object(recv).bytes)))
	}
	c.AddMethod0(vm.Symbols, "length", length)
	c.AddMethod0(vm.Symbols, "size", length)

	c.AddMethod0(vm.Symbols, "bytesize", func(vm *VM, recv Value) Value {
		return FromInt(int64(len(vm.Object(recv).bytes)))
	})

	c.AddMethod0(vm.Symbols, "empty?", func(vm *VM, recv Value) Value {
		return FromBool(len(vm.Object(recv).bytes) == 0)
	})

	c.AddMethod0(vm.Symbols, "valid_encoding?", func(vm *VM, recv Value) Value {
		return FromBool(utf8.Valid(vm.Object(recv).bytes))
	})

	c.AddMethod1(vm.Symbols, "+", func(vm *VM, recv, arg Value) Value {
		other := vm.StringBytes(arg)
		self := vm.Object(recv).bytes
		buf := make([]byte, 0, len(self)+len(other))
		buf = append(buf, self...)
		buf = append(buf, other...)
		return vm.NewString(buf)
	})

	c.AddMethod1(vm.Symbols, "*", func(vm *VM, recv, arg Value) Value {
		if !arg.IsFixnum() {
			vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into Integer", vm.ClassOf(arg).FQName())
		}
		n := arg.Int()
		if n < 0 {
			vm.Raise(vm.ArgumentErrorClass, "negative argument")
		}
		self := vm.Object(recv).bytes
		if len(self) > 0 && n > int64(maxStringBytes/len(self)) {
			vm.Raise(vm.ArgumentErrorClass, "argument too big")
		}
		return vm.NewString(bytes.Repeat(self, int(n)))
	})

	c.AddMethod1(vm.Symbols, "<<", func(vm *VM, recv, arg Value) Value {
		vm.checkFrozen(recv)
		obj := vm.Object(recv)
		if arg.IsFixnum() {
			n := arg.Int()
			if n < 0 || n > 255 {
				vm.Raisef(vm.RangeErrorClass, "%d out of char range", n)
			}
			obj.bytes = append(obj.bytes, byte(n))
			return recv
		}
		obj.bytes = append(obj.bytes, vm.StringBytes(arg)...)
		return recv
	})

	// [] with an Integer index answers the character at that position.
	c.AddMethod1(vm.Symbols, "[]", func(vm *VM, recv, arg Value) Value {
		if !arg.IsFixnum() {
			vm.Raisef(vm.TypeErrorClass, "no implicit conversion of %s into Integer", vm.ClassOf(arg).FQName())
		}
		chars := splitChars(vm.Object(recv).bytes)
		i := arg.Int()
		if i < 0 {
			i += int64(len(chars))
		}
		if i < 0 || i >= int64(len(chars)) {
			return Nil
		}
		return vm.NewString(chars[i])
	})

	c.AddMethod1(vm.Symbols, "==", func(vm *VM, recv, arg Value) Value {
		if arg.Type() != TypeString {
			return False
		}
		return FromBool(bytes.Equal(vm.Object(recv).bytes, vm.Object(arg).bytes))
	})

	c.AddMethod0(vm.Symbols, "to_s", func(vm *VM, recv Value) Value {
		return recv
	})

	c.AddMethod0(vm.Symbols, "to_sym", func(vm *VM, recv Value) Value {
		return FromSymbol(vm.Symbols.InternBytes(vm.Object(recv).bytes))
	})

	c.AddMethod0(vm.Symbols, "inspect", func(vm *VM, recv Value) Value {
		return vm.NewStringFromString(InspectBytes(vm.Object(recv).bytes))
	})
}

const maxStringBytes = 1 << 31

// charCount counts UTF-8 characters; each invalid byte counts as one.
func charCount(b []byte) int {
	return utf8.RuneCount(b)
}

func splitChars(b []byte) [][]byte {
	chars := make([][]byte, 0, len(b))
	for len(b) > 0 {
		_, size := utf8.DecodeRune(b)
		chars = append(chars, b[:size])
		b = b[size:]
	}
	return chars
}

// InspectBytes renders b as a double-quoted guest string literal.
func InspectBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, "\\x%02X", b[0])
			b = b[1:]
			continue
		}
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\f':
			sb.WriteString(`\f`)
		case '\v':
			sb.WriteString(`\v`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case 0x1b:
			sb.WriteString(`\e`)
		case '#':
			if len(b) > 1 && (b[1] == '{' || b[1] == '$' || b[1] == '@') {
				sb.WriteByte('\\')
			}
			sb.WriteByte('#')
		default:
			switch {
			case r < 0x80 && !unicode.IsPrint(r):
				fmt.Fprintf(&sb, "\\x%02X", r)
			case !unicode.IsPrint(r):
				fmt.Fprintf(&sb, "\\u%04X", r)
			default:
				sb.WriteRune(r)
			}
		}
		b = b[size:]
	}
	sb.WriteByte('"')
	return sb.String()
}
